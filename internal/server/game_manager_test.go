package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"loveletter-server/internal/loveletter"
)

var (
	alice = Identity{ID: "id-alice", Name: "Alice"}
	bob   = Identity{ID: "id-bob", Name: "Bob"}
	carol = Identity{ID: "id-carol", Name: "Carol"}
	dave  = Identity{ID: "id-dave", Name: "Dave"}
	eve   = Identity{ID: "id-eve", Name: "Eve"}
)

func TestNewGameManager(t *testing.T) {
	assert := assert.New(t)

	gm := NewGameManager(loveletter.Engine{})

	assert.NotNil(gm)
	assert.NotNil(gm.games)
	assert.NotNil(gm.usedCodes)
	assert.Equal(0, len(gm.games))
}

func TestCreateGame_Success(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, err := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})

	assert.NoError(err)
	assert.NotNil(game)

	// Game ID generated
	assert.Equal(4, len(game.ID))
	assert.NoError(ValidateGameID(game.ID))

	// Creator is host and sole player, lobby status, no state yet
	assert.Equal(alice.ID, game.Host)
	assert.Equal([]Identity{alice}, game.Players)
	assert.Equal(StatusLobby, game.Status)
	assert.Nil(game.State)

	assert.False(game.CreatedAt.IsZero())
	assert.False(game.UpdatedAt.IsZero())
}

func TestCreateGame_InvalidSettings(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	cases := []GameSettings{
		{Required: 0, Optional: 0},
		{Required: 1, Optional: 1},
		{Required: 2, Optional: -1},
		{Required: 2, Optional: 3},
		{Required: 5, Optional: 0},
	}

	for _, settings := range cases {
		_, err := gm.CreateGame(alice, settings)
		assert.Error(err, "Settings %+v should be rejected", settings)
		assert.Contains(err.Error(), "SETTINGS_INVALID")
	}
}

func TestGetGame_NormalizesID(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, err := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	assert.NoError(err)

	found, err := gm.GetGame(game.ID)
	assert.NoError(err)
	assert.Equal(game, found)

	// Lowercase lookups work too (QR links, typed codes)
	found, err = gm.GetGame(strings.ToLower(game.ID))
	assert.NoError(err)
	assert.Equal(game, found)

	_, err = gm.GetGame("XXXX")
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_NOT_FOUND")
}

func TestJoinGame_Success(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})

	joined, err := gm.JoinGame(game.ID, bob)
	assert.NoError(err)
	assert.Equal([]Identity{alice, bob}, joined.Players)
}

func TestJoinGame_Failures(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 1})

	// Unknown game
	_, err := gm.JoinGame("QQQQ", bob)
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_NOT_FOUND")

	// Duplicate join
	_, err = gm.JoinGame(game.ID, alice)
	assert.Error(err)
	assert.Contains(err.Error(), "ALREADY_JOINED")

	// Capacity is required+optional
	_, err = gm.JoinGame(game.ID, bob)
	assert.NoError(err)
	_, err = gm.JoinGame(game.ID, carol)
	assert.NoError(err)
	_, err = gm.JoinGame(game.ID, dave)
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_FULL")
}

func TestJoinGame_RejectedOnceStarted(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)

	_, err := gm.StartGame(game.ID, alice.ID)
	assert.NoError(err)

	_, err = gm.JoinGame(game.ID, carol)
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_IN_PROGRESS")
}

func TestLeaveGame_Idempotent(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)

	_, left, err := gm.LeaveGame(game.ID, bob.ID)
	assert.NoError(err)
	assert.True(left)

	// Leaving again is not an error, just reports nothing happened
	_, left, err = gm.LeaveGame(game.ID, bob.ID)
	assert.NoError(err)
	assert.False(left)

	assert.Equal([]Identity{alice}, game.Players)
}

func TestLeaveGame_HostHandoff(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.JoinGame(game.ID, carol)

	_, left, err := gm.LeaveGame(game.ID, alice.ID)
	assert.NoError(err)
	assert.True(left)

	// Earliest remaining joiner becomes host
	assert.Equal(bob.ID, game.Host)
	assert.Equal([]Identity{bob, carol}, game.Players)
}

func TestLeaveGame_RejectedOnceStarted(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.StartGame(game.ID, alice.ID)

	_, _, err := gm.LeaveGame(game.ID, bob.ID)
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_IN_PROGRESS")
}

func TestStartGame_DealsRound(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.JoinGame(game.ID, carol)

	started, err := gm.StartGame(game.ID, bob.ID)
	assert.NoError(err)
	assert.Equal(StatusInProgress, started.Status)
	assert.NotNil(started.State)

	// Players seated in join order; first player drew their second card
	assert.Equal([]string{alice.ID, bob.ID, carol.ID}, started.State.Order)
	assert.Equal(alice.ID, started.State.ToAct)
	assert.Len(started.State.Players[alice.ID].Hand, 2)
	assert.Len(started.State.Players[bob.ID].Hand, 1)
	assert.Equal(16, started.State.CardCount())
}

func TestStartGame_Failures(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})

	// Below the required threshold
	_, err := gm.StartGame(game.ID, alice.ID)
	assert.Error(err)
	assert.Contains(err.Error(), "NOT_ENOUGH_PLAYERS")

	gm.JoinGame(game.ID, bob)

	// Non-participants cannot start
	_, err = gm.StartGame(game.ID, eve.ID)
	assert.Error(err)
	assert.Contains(err.Error(), "NOT_IN_GAME")

	_, err = gm.StartGame(game.ID, alice.ID)
	assert.NoError(err)

	// Starting twice
	_, err = gm.StartGame(game.ID, alice.ID)
	assert.Error(err)
	assert.Contains(err.Error(), "ALREADY_STARTED")
}

func TestSubmitAction_Authorization(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)

	// Before start
	_, err := gm.SubmitAction(game.ID, alice.ID, loveletter.Action{Card: loveletter.Handmaiden})
	assert.Error(err)
	assert.Contains(err.Error(), "GAME_NOT_STARTED")

	gm.StartGame(game.ID, alice.ID)

	// Non-participant
	_, err = gm.SubmitAction(game.ID, eve.ID, loveletter.Action{Card: loveletter.Handmaiden})
	assert.Error(err)
	assert.Contains(err.Error(), "NOT_IN_GAME")

	// Not the acting player
	outOfTurn := game.State.Order[1]
	_, err = gm.SubmitAction(game.ID, outOfTurn, loveletter.Action{Card: loveletter.Handmaiden})
	assert.Error(err)
	assert.Contains(err.Error(), "NOT_YOUR_TURN")
}

func TestSubmitAction_MalformedPayloadRejected(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.StartGame(game.ID, alice.ID)

	// Guard without a declared rank never reaches the engine
	_, err := gm.SubmitAction(game.ID, alice.ID, loveletter.Action{
		Card:   loveletter.Guard,
		Target: bob.ID,
	})
	assert.Error(err)
	assert.Contains(err.Error(), "INVALID_ACTION")
}

func TestSubmitAction_EngineNoOp(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.StartGame(game.ID, alice.ID)

	// Play a card the actor cannot be holding: hands are two cards, so at
	// least six of the eight ranks are absent. Find one.
	hand := game.State.Players[alice.ID].Hand
	var absent loveletter.Card
	for c := loveletter.Guard; c <= loveletter.Princess; c++ {
		if c != hand[0] && c != hand[1] {
			absent = c
			break
		}
	}

	action := loveletter.Action{Card: absent}
	if absent.NeedsTarget() {
		action.Target = bob.ID
	}
	if absent == loveletter.Guard {
		action.Declared = loveletter.Priest
	}

	before := game.State.Clone()
	res, err := gm.SubmitAction(game.ID, alice.ID, action)
	assert.NoError(err)
	assert.False(res.Changed)

	// Session state untouched
	assert.Equal(before, *game.State)
	assert.Equal(StatusInProgress, game.Status)
}

func TestSubmitAction_AdvancesState(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.StartGame(game.ID, alice.ID)

	res, err := gm.SubmitAction(game.ID, alice.ID, pickAction(game.State))
	assert.NoError(err)
	assert.True(res.Changed)

	// Session adopted the successor state
	assert.Equal(res.State, *game.State)
	assert.Equal(16, game.State.CardCount())
}

func TestSubmitAction_RoundOverRejected(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(game.ID, bob)
	gm.StartGame(game.ID, alice.ID)

	// Play random legal actions until the round ends
	for i := 0; i < 100 && game.Status == StatusInProgress; i++ {
		actor := game.State.ToAct
		res, err := gm.SubmitAction(game.ID, actor, pickAction(game.State))
		assert.NoError(err)
		assert.True(res.Changed)
	}

	assert.Equal(StatusRoundOver, game.Status)
	assert.NotEmpty(game.State.Winners)

	_, err := gm.SubmitAction(game.ID, game.State.ToAct, loveletter.Action{Card: loveletter.Handmaiden})
	assert.Error(err)
	assert.Contains(err.Error(), "ROUND_OVER")
}

func TestGamesFor(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	first, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	second, _ := gm.CreateGame(bob, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(second.ID, alice)

	games := gm.GamesFor(alice.ID)
	assert.Len(games, 2)
	assert.ElementsMatch([]string{first.ID, second.ID}, []string{games[0].ID, games[1].ID})

	games = gm.GamesFor(bob.ID)
	assert.Len(games, 1)
	assert.Equal(second.ID, games[0].ID)

	assert.Empty(gm.GamesFor(eve.ID))
}

func TestSummaries(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	game, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 1})
	gm.JoinGame(game.ID, bob)

	summaries := gm.Summaries()
	assert.Len(summaries, 1)

	s := summaries[0]
	assert.Equal(game.ID, s.GameID)
	assert.Equal("Alice", s.Host)
	assert.Equal([]string{"Alice", "Bob"}, s.Players)
	assert.Equal(2, s.Required)
	assert.Equal(1, s.Optional)
	assert.Equal("lobby", s.Status)
}

func TestRemoveStaleLobbies(t *testing.T) {
	assert := assert.New(t)
	gm := NewGameManager(loveletter.Engine{})

	stale, _ := gm.CreateGame(alice, GameSettings{Required: 2, Optional: 2})
	active, _ := gm.CreateGame(bob, GameSettings{Required: 2, Optional: 2})
	gm.JoinGame(active.ID, carol)
	gm.StartGame(active.ID, bob.ID)

	// Anything not in progress ages out once past the cutoff
	removed := gm.RemoveStaleLobbies(0)
	assert.Equal(1, removed)

	_, err := gm.GetGame(stale.ID)
	assert.Error(err)
	_, err = gm.GetGame(active.ID)
	assert.NoError(err)
}

// pickAction chooses a legal-looking play for the current actor: never leads
// with the Princess, targets the next living opponent when the card needs
// one.
func pickAction(s *loveletter.State) loveletter.Action {
	actor := s.ToAct
	hand := s.Players[actor].Hand

	card := hand[0]
	if card == loveletter.Princess && len(hand) > 1 {
		card = hand[1]
	}

	action := loveletter.Action{Card: card, Acting: actor}
	if card.NeedsTarget() {
		for _, id := range s.Order {
			if id != actor && !s.Players[id].Eliminated {
				action.Target = id
				break
			}
		}
		if card == loveletter.Prince && action.Target == "" {
			action.Target = actor
		}
	}
	if card == loveletter.Guard {
		action.Declared = loveletter.Priest
	}
	return action
}
