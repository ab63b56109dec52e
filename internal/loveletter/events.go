package loveletter

type EventType string

const (
	EventGuardWrong     EventType = "guard_wrong"
	EventGuardCorrect   EventType = "guard_correct"
	EventUsedPriest     EventType = "used_priest"
	EventBaronSuccess   EventType = "baron_success"
	EventBaronFail      EventType = "baron_fail"
	EventBaronDraw      EventType = "baron_draw"
	EventUsedHandmaiden EventType = "used_handmaiden"
	EventUsedPrince     EventType = "used_prince"
	EventPrincePrincess EventType = "used_prince_on_princess"
	EventUsedKing       EventType = "used_king"
	EventUsedCountess   EventType = "used_countess"
	EventUsedPrincess   EventType = "used_princess"
	EventEliminated     EventType = "player_eliminated"
	EventRoundEnded     EventType = "round_ended"
)

// Event is one public entry of the action log. Events only ever describe
// information that is already public once the action resolves.
type Event struct {
	Type   EventType `json:"type"`
	Player string    `json:"player,omitempty"`
	Target string    `json:"target,omitempty"`
}

// Reveal is the Priest's private disclosure. It is addressed to a single
// viewer and must never enter the shared state or any broadcast.
type Reveal struct {
	To     string `json:"-"`
	Target string `json:"target"`
	Card   Card   `json:"card"`
}
