package loveletter

import "slices"

// View is the redacted rendering of a State for one viewer. Only the
// viewer's own hand carries card identities; everyone else's hand is a
// count. The set-aside card is never disclosed.
type View struct {
	ToAct     string                `json:"toAct"`
	Order     []string              `json:"order"`
	Players   map[string]PlayerView `json:"players"`
	DeckCount int                   `json:"deckCount"`
	Status    Status                `json:"status"`
	Winners   []string              `json:"winners,omitempty"`
}

type PlayerView struct {
	Hand       []Card `json:"hand,omitempty"`
	HandCount  int    `json:"handCount"`
	Discards   []Card `json:"discards"`
	Protected  bool   `json:"protected"`
	Eliminated bool   `json:"eliminated"`
}

// AsVisibleBy projects state for a single viewer. Pure; the result shares no
// mutable memory with state. It must be called once per viewer — no two
// viewers may ever receive each other's projection.
func AsVisibleBy(s State, viewer string) View {
	view := View{
		ToAct:     s.ToAct,
		Order:     slices.Clone(s.Order),
		Players:   make(map[string]PlayerView, len(s.Players)),
		DeckCount: len(s.Deck),
		Status:    s.Status,
		Winners:   slices.Clone(s.Winners),
	}

	for id, p := range s.Players {
		pv := PlayerView{
			HandCount:  len(p.Hand),
			Discards:   slices.Clone(p.Discards),
			Protected:  p.Protected,
			Eliminated: p.Eliminated,
		}
		if id == viewer {
			pv.Hand = slices.Clone(p.Hand)
		}
		view.Players[id] = pv
	}

	return view
}
