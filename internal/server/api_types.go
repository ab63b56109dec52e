package server

import "loveletter-server/internal/loveletter"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// LOG IN (log_in) / LOG OUT (log_out)
// ============================================================================
// A client either presents a username (first visit) or a previously issued
// token (resuming after a disconnect). Exactly one of the two is used.
// tygo:generate
type LogInRequest struct {
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

// tygo:generate
type LogInResponse struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// tygo:generate
type LogInFailure struct {
	Message string `json:"message"`
}

// tygo:generate
type LogOutRequest struct {
	Token string `json:"token,omitempty"`
}

// ============================================================================
// CREATE GAME (create_game)
// ============================================================================
// The resulting game_created carries a GameSummary and goes to every
// connection, the creator included (lobby discovery).
// tygo:generate
type CreateGameRequest struct {
	Required int `json:"required"`
	Optional int `json:"optional"`
}

// ============================================================================
// JOIN GAME (join_game)
// ============================================================================
// tygo:generate
type JoinGameRequest struct {
	GameID string `json:"gameId"`
}

// tygo:generate
type JoinGameResponse struct {
	Success bool   `json:"success"`
	GameID  string `json:"gameId"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// LEAVE GAME (leave_game)
// ============================================================================
// tygo:generate
type LeaveGameRequest struct {
	GameID string `json:"gameId"`
}

// tygo:generate
type LeaveGameResponse struct {
	GameID string `json:"gameId"`
}

// ============================================================================
// START GAME (start_game)
// ============================================================================
// tygo:generate
type StartGameRequest struct {
	GameID string `json:"gameId"`
}

// ============================================================================
// PERFORM ACTION (perform_action)
// ============================================================================
// tygo:generate
type ActionRequest struct {
	GameID   string          `json:"gameId"`
	Card     loveletter.Card `json:"card"`
	Target   string          `json:"target,omitempty"`
	Declared loveletter.Card `json:"declared,omitempty"`
}

// tygo:generate
type ActionResult struct {
	GameID  string `json:"gameId"`
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// GAME STATE (game_state broadcast)
// ============================================================================
// Personalized per viewer; never the same payload for two players.
// tygo:generate
type GameStateMessage struct {
	GameID string             `json:"gameId"`
	Status string             `json:"status"`
	State  *loveletter.View   `json:"state,omitempty"`
	Events []loveletter.Event `json:"events,omitempty"`
}

// ============================================================================
// CARD REVEALED (card_revealed, acting player only)
// ============================================================================
// tygo:generate
type CardRevealedMessage struct {
	GameID string          `json:"gameId"`
	Target string          `json:"target"`
	Card   loveletter.Card `json:"card"`
}

// ============================================================================
// GAMES LIST (games_list) / GAME CREATED (game_created broadcast)
// ============================================================================
// tygo:generate
type GameSummary struct {
	GameID   string   `json:"gameId"`
	Host     string   `json:"host"`
	Players  []string `json:"players"`
	Required int      `json:"required"`
	Optional int      `json:"optional"`
	Status   string   `json:"status"`
}

// tygo:generate
type GamesListMessage struct {
	Games []GameSummary `json:"games"`
}

// ============================================================================
// LOBBY NOTIFICATIONS (player_joined / player_left / player_reconnected /
// player_disconnected, per-session broadcast)
// ============================================================================
// tygo:generate
type PlayerStatusNotification struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// ============================================================================
// GAME STARTED (game_started broadcast)
// ============================================================================
// tygo:generate
type GameStartedNotification struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

// ============================================================================
// SERVER SHUTDOWN (server_shutdown broadcast)
// ============================================================================
// tygo:generate
type ShutdownNotification struct {
	Message string `json:"message"`
}
