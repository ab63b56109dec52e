package server

import (
	"errors"
	"slices"
	"sync"
	"time"

	"loveletter-server/internal/loveletter"
)

// GameManager owns the directory of live sessions. The directory map has its
// own lock; each session carries a mutex serializing every mutation of that
// one session, so actions against different games proceed in parallel.
type GameManager struct {
	games     map[string]*GameSession
	usedCodes map[string]bool
	engine    loveletter.Engine
	mu        sync.RWMutex
}

type GameSession struct {
	ID        string
	Host      string
	Players   []Identity // join order
	Settings  GameSettings
	Status    GameStatus
	State     *loveletter.State
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

type GameSettings struct {
	Required int `json:"required"`
	Optional int `json:"optional"`
}

type GameStatus string

const (
	StatusLobby      GameStatus = "lobby"
	StatusInProgress GameStatus = "in_progress"
	StatusRoundOver  GameStatus = "round_over"
)

func NewGameManager(engine loveletter.Engine) *GameManager {
	return &GameManager{
		games:     make(map[string]*GameSession),
		usedCodes: make(map[string]bool),
		engine:    engine,
	}
}

func (gm *GameManager) CreateGame(host Identity, settings GameSettings) (*GameSession, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	gm.mu.Lock()
	gameID := GenerateGameID(gm.usedCodes)
	gm.usedCodes[gameID] = true
	gm.mu.Unlock()

	now := time.Now()
	game := &GameSession{
		ID:        gameID,
		Host:      host.ID,
		Players:   []Identity{host},
		Settings:  settings,
		Status:    StatusLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}

	gm.mu.Lock()
	gm.games[gameID] = game
	gm.mu.Unlock()

	return game, nil
}

func (gm *GameManager) GetGame(gameID string) (*GameSession, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[NormalizeGameID(gameID)]
	if !exists {
		return nil, errors.New("GAME_NOT_FOUND: Game not found")
	}

	return game, nil
}

func (gm *GameManager) JoinGame(gameID string, joiner Identity) (*GameSession, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusLobby {
		return nil, errors.New("GAME_IN_PROGRESS: Cannot join a game that has started")
	}
	if game.memberIndex(joiner.ID) != -1 {
		return nil, errors.New("ALREADY_JOINED: Already in this game")
	}
	if len(game.Players) >= game.Settings.Required+game.Settings.Optional {
		return nil, errors.New("GAME_FULL: Game is at capacity")
	}

	game.Players = append(game.Players, joiner)
	game.UpdatedAt = time.Now()

	return game, nil
}

// LeaveGame removes a player from a lobby. Idempotent: leaving a game the
// player is not in reports left=false without error.
func (gm *GameManager) LeaveGame(gameID, playerID string) (*GameSession, bool, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, false, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusLobby {
		return nil, false, errors.New("GAME_IN_PROGRESS: Cannot leave a game that has started")
	}

	i := game.memberIndex(playerID)
	if i == -1 {
		return game, false, nil
	}

	game.Players = slices.Delete(game.Players, i, i+1)
	game.UpdatedAt = time.Now()

	// Host left: pass hosting to the earliest remaining joiner.
	if game.Host == playerID && len(game.Players) > 0 {
		game.Host = game.Players[0].ID
	}

	return game, true, nil
}

// StartGame deals the round and flips the session to in_progress. Any
// participant may start once the required player count is met.
func (gm *GameManager) StartGame(gameID, playerID string) (*GameSession, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.memberIndex(playerID) == -1 {
		return nil, errors.New("NOT_IN_GAME: Only participants can start the game")
	}
	if game.Status != StatusLobby {
		return nil, errors.New("ALREADY_STARTED: Game has already started")
	}
	if len(game.Players) < game.Settings.Required {
		return nil, errors.New("NOT_ENOUGH_PLAYERS: Waiting for more players")
	}

	ids := make([]string, len(game.Players))
	for i, p := range game.Players {
		ids[i] = p.ID
	}

	state := loveletter.NewRound(ids)
	game.State = &state
	game.Status = StatusInProgress
	game.UpdatedAt = time.Now()

	return game, nil
}

// SubmitAction runs one card play through the rules engine. The returned
// Result carries Changed=false when the engine treated the action as a no-op;
// the caller should suppress the broadcast in that case.
func (gm *GameManager) SubmitAction(gameID, playerID string, action loveletter.Action) (loveletter.Result, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return loveletter.Result{}, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.memberIndex(playerID) == -1 {
		return loveletter.Result{}, errors.New("NOT_IN_GAME: Not a participant of this game")
	}
	switch game.Status {
	case StatusLobby:
		return loveletter.Result{}, errors.New("GAME_NOT_STARTED: Game has not started yet")
	case StatusRoundOver:
		return loveletter.Result{}, errors.New("ROUND_OVER: The round has ended")
	}
	if game.State.ToAct != playerID {
		return loveletter.Result{}, errors.New("NOT_YOUR_TURN: It is not your turn")
	}

	action.Acting = playerID
	if err := action.Validate(); err != nil {
		return loveletter.Result{}, err
	}

	res := gm.engine.Apply(*game.State, action)
	if !res.Changed {
		return res, nil
	}

	next := res.State
	game.State = &next
	if next.Status == loveletter.StatusRoundOver {
		game.Status = StatusRoundOver
	}
	game.UpdatedAt = time.Now()

	return res, nil
}

// GamesFor returns every session the player participates in. Used on
// reconnect to resubscribe and on disconnect to notify co-participants.
func (gm *GameManager) GamesFor(playerID string) []*GameSession {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	var out []*GameSession
	for _, game := range gm.games {
		game.mu.Lock()
		member := game.memberIndex(playerID) != -1
		game.mu.Unlock()
		if member {
			out = append(out, game)
		}
	}
	return out
}

// Summaries lists every session for lobby discovery.
func (gm *GameManager) Summaries() []GameSummary {
	gm.mu.RLock()
	games := make([]*GameSession, 0, len(gm.games))
	for _, game := range gm.games {
		games = append(games, game)
	}
	gm.mu.RUnlock()

	out := make([]GameSummary, 0, len(games))
	for _, game := range games {
		out = append(out, game.Summary())
	}
	slices.SortFunc(out, func(a, b GameSummary) int {
		if a.GameID < b.GameID {
			return -1
		}
		if a.GameID > b.GameID {
			return 1
		}
		return 0
	})
	return out
}

// RemoveStaleLobbies deletes lobbies untouched for longer than maxAge and
// frees their game IDs. Finished rounds also age out here.
func (gm *GameManager) RemoveStaleLobbies(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	removed := 0
	for id, game := range gm.games {
		game.mu.Lock()
		stale := game.Status != StatusInProgress && game.UpdatedAt.Before(cutoff)
		game.mu.Unlock()
		if stale {
			delete(gm.games, id)
			delete(gm.usedCodes, id)
			removed++
		}
	}
	return removed
}

// Summary is a public snapshot safe to hand out without the session lock.
func (g *GameSession) Summary() GameSummary {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, len(g.Players))
	host := ""
	for i, p := range g.Players {
		names[i] = p.Name
		if p.ID == g.Host {
			host = p.Name
		}
	}

	return GameSummary{
		GameID:   g.ID,
		Host:     host,
		Players:  names,
		Required: g.Settings.Required,
		Optional: g.Settings.Optional,
		Status:   string(g.Status),
	}
}

// Participants returns a copy of the join-order player list.
func (g *GameSession) Participants() []Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.Players)
}

// Snapshot returns the session status plus a deep copy of the game state, or
// nil while still in the lobby.
func (g *GameSession) Snapshot() (GameStatus, *loveletter.State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.State == nil {
		return g.Status, nil
	}
	state := g.State.Clone()
	return g.Status, &state
}

// memberIndex must be called with g.mu held.
func (g *GameSession) memberIndex(playerID string) int {
	return slices.IndexFunc(g.Players, func(p Identity) bool {
		return p.ID == playerID
	})
}

func validateSettings(settings GameSettings) error {
	if settings.Required < 2 {
		return errors.New("SETTINGS_INVALID: At least 2 players required")
	}
	if settings.Optional < 0 {
		return errors.New("SETTINGS_INVALID: Optional player count cannot be negative")
	}
	if settings.Required+settings.Optional > 4 {
		return errors.New("SETTINGS_INVALID: At most 4 players supported")
	}
	return nil
}
