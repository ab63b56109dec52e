package loveletter_test

import (
	"testing"

	"loveletter-server/internal/loveletter"
)

func TestBaronLowerRankIsEliminated(t *testing.T) {
	tests := []struct {
		name       string
		bobKeeps   loveletter.Card
		jackHolds  loveletter.Card
		eliminated string
		event      loveletter.EventType
	}{
		{
			name:       "acting player wins",
			bobKeeps:   loveletter.Prince,
			jackHolds:  loveletter.Priest,
			eliminated: "Jack",
			event:      loveletter.EventBaronSuccess,
		},
		{
			name:       "target wins",
			bobKeeps:   loveletter.Priest,
			jackHolds:  loveletter.Princess,
			eliminated: "Bob",
			event:      loveletter.EventBaronFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stateWith(
				[]string{"Bob", "Jack", "Jill"},
				map[string][]loveletter.Card{
					"Bob":  {loveletter.Baron, tt.bobKeeps},
					"Jack": {tt.jackHolds},
					"Jill": {loveletter.Handmaiden},
				},
				[]loveletter.Card{loveletter.Guard, loveletter.Guard},
			)

			var engine loveletter.Engine
			res := engine.Apply(s, loveletter.Action{
				Card:   loveletter.Baron,
				Acting: "Bob",
				Target: "Jack",
			})

			if !res.Changed {
				t.Fatal("expected the action to resolve")
			}
			if !res.State.Players[tt.eliminated].Eliminated {
				t.Errorf("%s should be eliminated", tt.eliminated)
			}
			if res.Events[0].Type != tt.event {
				t.Errorf("first event is %s, expected %s", res.Events[0].Type, tt.event)
			}
			if res.State.CardCount() != s.CardCount() {
				t.Errorf("card count changed from %d to %d", s.CardCount(), res.State.CardCount())
			}
		})
	}
}

func TestBaronTieEliminatesNobody(t *testing.T) {
	s := stateWith(
		[]string{"Bob", "Jack"},
		map[string][]loveletter.Card{
			"Bob":  {loveletter.Baron, loveletter.Guard},
			"Jack": {loveletter.Guard},
		},
		[]loveletter.Card{loveletter.Priest, loveletter.Prince},
	)

	var engine loveletter.Engine
	res := engine.Apply(s, loveletter.Action{
		Card:   loveletter.Baron,
		Acting: "Bob",
		Target: "Jack",
	})

	if !res.Changed {
		t.Fatal("expected the action to resolve")
	}
	if res.State.Players["Bob"].Eliminated || res.State.Players["Jack"].Eliminated {
		t.Error("equal ranks should eliminate nobody")
	}
	if res.State.Players["Bob"].Hand[0] != loveletter.Guard {
		t.Error("Bob should retain his remaining card")
	}
	if res.State.Players["Jack"].Hand[0] != loveletter.Guard {
		t.Error("Jack should retain his card")
	}
	if res.Events[0].Type != loveletter.EventBaronDraw {
		t.Errorf("first event is %s, expected baron_draw", res.Events[0].Type)
	}
}

func TestBaronSkippedAgainstProtectedTarget(t *testing.T) {
	s := stateWith(
		[]string{"Bob", "Jack"},
		map[string][]loveletter.Card{
			"Bob":  {loveletter.Baron, loveletter.Princess},
			"Jack": {loveletter.Guard},
		},
		[]loveletter.Card{loveletter.Priest, loveletter.Prince},
	)
	jack := s.Players["Jack"]
	jack.Protected = true
	s.Players["Jack"] = jack

	var engine loveletter.Engine
	res := engine.Apply(s, loveletter.Action{
		Card:   loveletter.Baron,
		Acting: "Bob",
		Target: "Jack",
	})

	if !res.Changed {
		t.Fatal("the card is still discarded against a protected target")
	}
	if res.State.Players["Jack"].Eliminated {
		t.Error("protected target must not be compared")
	}
}
