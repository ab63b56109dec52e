package loveletter_test

import (
	"slices"
	"testing"

	"loveletter-server/internal/loveletter"
)

func TestProjectionHidesOtherHands(t *testing.T) {
	s := loveletter.NewRound([]string{"Bob", "Jack", "Jill"})

	for _, viewer := range s.Order {
		view := loveletter.AsVisibleBy(s, viewer)

		own := view.Players[viewer]
		if !slices.Equal(own.Hand, s.Players[viewer].Hand) {
			t.Errorf("viewer %s should see their own hand in full", viewer)
		}

		for _, other := range s.Order {
			if other == viewer {
				continue
			}
			pv := view.Players[other]
			if pv.Hand != nil {
				t.Errorf("viewer %s can see %s's cards", viewer, other)
			}
			if pv.HandCount != len(s.Players[other].Hand) {
				t.Errorf("viewer %s sees hand count %d for %s, expected %d",
					viewer, pv.HandCount, other, len(s.Players[other].Hand))
			}
		}
	}
}

func TestProjectionShowsPublicInformation(t *testing.T) {
	s := stateWith(
		[]string{"Bob", "Jack"},
		map[string][]loveletter.Card{
			"Bob":  {loveletter.Guard, loveletter.Baron},
			"Jack": {loveletter.Priest},
		},
		[]loveletter.Card{loveletter.Prince, loveletter.King},
	)
	jack := s.Players["Jack"]
	jack.Protected = true
	jack.Discards = []loveletter.Card{loveletter.Handmaiden}
	s.Players["Jack"] = jack

	view := loveletter.AsVisibleBy(s, "Bob")

	if view.ToAct != "Bob" {
		t.Errorf("toAct is %q, expected Bob", view.ToAct)
	}
	if !slices.Equal(view.Order, s.Order) {
		t.Error("order should pass through unchanged")
	}
	if view.DeckCount != 2 {
		t.Errorf("deck count is %d, expected 2", view.DeckCount)
	}
	if !view.Players["Jack"].Protected {
		t.Error("protection flags are public")
	}
	if !slices.Equal(view.Players["Jack"].Discards, []loveletter.Card{loveletter.Handmaiden}) {
		t.Error("discards are public")
	}
}

func TestProjectionSharesNoMemoryWithState(t *testing.T) {
	s := loveletter.NewRound([]string{"Bob", "Jack"})
	before := slices.Clone(s.Players["Bob"].Hand)

	view := loveletter.AsVisibleBy(s, "Bob")
	view.Order[0] = "Mallory"
	view.Players["Bob"].Hand[0] = loveletter.Card(99)

	if s.Order[0] != "Bob" {
		t.Error("mutating the view's order leaked into the state")
	}
	if !slices.Equal(s.Players["Bob"].Hand, before) {
		t.Error("mutating the view's hand leaked into the state")
	}
}
