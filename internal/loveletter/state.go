package loveletter

import "slices"

type Status string

const (
	StatusPlaying   Status = "playing"
	StatusRoundOver Status = "round_over"
)

// PlayerState is one participant's cards and flags. Hand normally holds one
// card, momentarily two mid-turn after drawing. Discards are append-only and
// public.
type PlayerState struct {
	Hand       []Card `json:"hand"`
	Discards   []Card `json:"discards"`
	Protected  bool   `json:"protected"`
	Eliminated bool   `json:"eliminated"`
}

func (p PlayerState) holds(card Card) bool {
	return slices.Contains(p.Hand, card)
}

// State is the authoritative game state for one round. It has value
// semantics: the engine never mutates a State it was handed, it works on a
// Clone and returns that.
type State struct {
	ToAct    string                 `json:"toAct"`
	Order    []string               `json:"order"`
	Players  map[string]PlayerState `json:"players"`
	Deck     []Card                 `json:"deck"`
	SetAside []Card                 `json:"setAside"`
	Status   Status                 `json:"status"`
	Winners  []string               `json:"winners,omitempty"`
}

// NewRound shuffles the deck, sets one card aside face-down, deals one card
// to each player in order, and draws the first player's second card to start
// their turn.
func NewRound(playerIDs []string) State {
	deck := NewDeck()
	Shuffle(deck)

	s := State{
		ToAct:   playerIDs[0],
		Order:   slices.Clone(playerIDs),
		Players: make(map[string]PlayerState, len(playerIDs)),
		Status:  StatusPlaying,
	}

	// Set aside the top card. It never re-enters play except as a
	// Prince-forced replacement when the deck runs out.
	s.SetAside = []Card{deck[len(deck)-1]}
	deck = deck[:len(deck)-1]

	for _, id := range playerIDs {
		s.Players[id] = PlayerState{
			Hand:     []Card{deck[len(deck)-1]},
			Discards: []Card{},
		}
		deck = deck[:len(deck)-1]
	}
	s.Deck = deck

	s.draw(playerIDs[0])
	return s
}

// Clone returns a deep copy sharing no mutable memory with s.
func (s State) Clone() State {
	out := s
	out.Order = slices.Clone(s.Order)
	out.Deck = slices.Clone(s.Deck)
	out.SetAside = slices.Clone(s.SetAside)
	out.Winners = slices.Clone(s.Winners)
	out.Players = make(map[string]PlayerState, len(s.Players))
	for id, p := range s.Players {
		p.Hand = slices.Clone(p.Hand)
		p.Discards = slices.Clone(p.Discards)
		out.Players[id] = p
	}
	return out
}

// draw moves the top deck card into id's hand. The caller must ensure the
// deck is non-empty.
func (s *State) draw(id string) {
	p := s.Players[id]
	p.Hand = append(p.Hand, s.Deck[len(s.Deck)-1])
	s.Deck = s.Deck[:len(s.Deck)-1]
	s.Players[id] = p
}

// eliminate marks id out of the round and moves any held cards face-up onto
// their discards, keeping the 16-card accounting intact.
func (s *State) eliminate(id string) {
	p := s.Players[id]
	p.Eliminated = true
	p.Discards = append(p.Discards, p.Hand...)
	p.Hand = nil
	s.Players[id] = p
}

// alive returns the non-eliminated identities in turn order.
func (s State) alive() []string {
	var out []string
	for _, id := range s.Order {
		if !s.Players[id].Eliminated {
			out = append(out, id)
		}
	}
	return out
}

// nextAlive returns the next non-eliminated identity after from in cyclic
// order.
func (s State) nextAlive(from string) string {
	start := slices.Index(s.Order, from)
	for i := 1; i <= len(s.Order); i++ {
		id := s.Order[(start+i)%len(s.Order)]
		if !s.Players[id].Eliminated {
			return id
		}
	}
	return from
}

// CardCount totals every card tracked by the state. It is 16 in all
// reachable states.
func (s State) CardCount() int {
	n := len(s.Deck) + len(s.SetAside)
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.Discards)
	}
	return n
}
