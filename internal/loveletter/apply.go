package loveletter

import "slices"

// TieBreak selects the winner when the deck runs out and several remaining
// players hold the same highest rank.
type TieBreak int

const (
	// TieShareWin declares every holder of the highest rank a winner.
	TieShareWin TieBreak = iota
	// TieFirstInOrder awards the earliest tied player in turn order alone.
	TieFirstInOrder
)

// Engine applies actions to game states. It is stateless and reentrant; the
// zero value plays with shared wins on ties.
type Engine struct {
	TieBreak TieBreak
}

// Result is the outcome of one Apply call. Changed is false when the action
// was not legal for the acting player, in which case State is the input
// state untouched and nothing should be broadcast.
type Result struct {
	Changed bool
	State   State
	Reveal  *Reveal
	Events  []Event
}

// Apply resolves one card play against state and returns the successor
// state. The input state is never mutated. Illegal actions (not the acting
// player's turn, card not held, bad target, round already over) come back as
// an unchanged no-op rather than an error.
func (e Engine) Apply(state State, action Action) Result {
	noop := Result{State: state}

	if state.Status == StatusRoundOver {
		return noop
	}
	if action.Acting != state.ToAct {
		return noop
	}
	actor, ok := state.Players[action.Acting]
	if !ok || actor.Eliminated || !actor.holds(action.Card) {
		return noop
	}
	if action.Card.TakesTarget() && action.Target != "" {
		target, ok := state.Players[action.Target]
		if !ok || target.Eliminated {
			return noop
		}
		if action.Target == action.Acting && action.Card != Prince {
			return noop
		}
	} else if action.Card.NeedsTarget() {
		return noop
	}

	s := state.Clone()
	s.discardFromHand(action.Acting, action.Card)

	res := Result{Changed: true}
	switch action.Card {
	case Guard:
		res.Events = e.playGuard(&s, action)
	case Priest:
		res.Reveal, res.Events = e.playPriest(&s, action)
	case Baron:
		res.Events = e.playBaron(&s, action)
	case Handmaiden:
		p := s.Players[action.Acting]
		p.Protected = true
		s.Players[action.Acting] = p
		res.Events = []Event{{Type: EventUsedHandmaiden, Player: action.Acting}}
	case Prince:
		res.Events = e.playPrince(&s, action)
	case King:
		res.Events = e.playKing(&s, action)
	case Countess:
		res.Events = []Event{{Type: EventUsedCountess, Player: action.Acting}}
	case Princess:
		s.eliminate(action.Acting)
		res.Events = []Event{
			{Type: EventUsedPrincess, Player: action.Acting},
			{Type: EventEliminated, Player: action.Acting},
		}
	}

	res.Events = append(res.Events, e.finishTurn(&s, action.Acting)...)
	res.State = s
	return res
}

func (e Engine) playGuard(s *State, action Action) []Event {
	target := s.Players[action.Target]
	if target.Protected {
		return nil
	}
	// Declaring Guard never eliminates, even against a held Guard.
	if action.Declared != Guard && target.holds(action.Declared) {
		s.eliminate(action.Target)
		return []Event{
			{Type: EventGuardCorrect, Player: action.Acting, Target: action.Target},
			{Type: EventEliminated, Player: action.Target},
		}
	}
	return []Event{{Type: EventGuardWrong, Player: action.Acting, Target: action.Target}}
}

func (e Engine) playPriest(s *State, action Action) (*Reveal, []Event) {
	target, ok := s.Players[action.Target]
	if !ok || target.Protected {
		return nil, nil
	}
	reveal := &Reveal{
		To:     action.Acting,
		Target: action.Target,
		Card:   target.Hand[0],
	}
	return reveal, []Event{{Type: EventUsedPriest, Player: action.Acting, Target: action.Target}}
}

func (e Engine) playBaron(s *State, action Action) []Event {
	target := s.Players[action.Target]
	if target.Protected {
		return nil
	}
	mine := s.Players[action.Acting].Hand[0]
	theirs := target.Hand[0]
	switch {
	case mine > theirs:
		s.eliminate(action.Target)
		return []Event{
			{Type: EventBaronSuccess, Player: action.Acting, Target: action.Target},
			{Type: EventEliminated, Player: action.Target},
		}
	case mine < theirs:
		s.eliminate(action.Acting)
		return []Event{
			{Type: EventBaronFail, Player: action.Acting, Target: action.Target},
			{Type: EventEliminated, Player: action.Acting},
		}
	default:
		return []Event{{Type: EventBaronDraw, Player: action.Acting, Target: action.Target}}
	}
}

func (e Engine) playPrince(s *State, action Action) []Event {
	target := s.Players[action.Target]
	// Protection does not shield a player from their own Prince.
	if target.Protected && action.Target != action.Acting {
		return nil
	}

	forced := target.Hand[0]
	s.discardFromHand(action.Target, forced)

	if forced == Princess {
		s.eliminate(action.Target)
		return []Event{
			{Type: EventPrincePrincess, Player: action.Acting, Target: action.Target},
			{Type: EventEliminated, Player: action.Target},
		}
	}

	s.drawReplacement(action.Target)
	return []Event{{Type: EventUsedPrince, Player: action.Acting, Target: action.Target}}
}

func (e Engine) playKing(s *State, action Action) []Event {
	target := s.Players[action.Target]
	if target.Protected {
		return nil
	}
	actor := s.Players[action.Acting]
	actor.Hand, target.Hand = target.Hand, actor.Hand
	s.Players[action.Acting] = actor
	s.Players[action.Target] = target
	return []Event{{Type: EventUsedKing, Player: action.Acting, Target: action.Target}}
}

// finishTurn detects round termination and otherwise advances the turn: the
// next non-eliminated player loses protection and draws the deck top.
func (e Engine) finishTurn(s *State, acting string) []Event {
	alive := s.alive()

	if len(alive) == 1 {
		s.Status = StatusRoundOver
		s.Winners = alive
		s.ToAct = alive[0]
		return []Event{{Type: EventRoundEnded, Player: alive[0]}}
	}

	if len(s.Deck) == 0 {
		s.Status = StatusRoundOver
		s.Winners = e.showdown(s, alive)
		s.ToAct = s.Winners[0]
		events := make([]Event, 0, len(s.Winners))
		for _, id := range s.Winners {
			events = append(events, Event{Type: EventRoundEnded, Player: id})
		}
		return events
	}

	next := s.nextAlive(acting)
	p := s.Players[next]
	p.Protected = false
	s.Players[next] = p
	s.ToAct = next
	s.draw(next)
	return nil
}

// showdown resolves a deck-exhaustion round end by highest held rank.
func (e Engine) showdown(s *State, alive []string) []string {
	best := Card(0)
	for _, id := range alive {
		if hand := s.Players[id].Hand; len(hand) > 0 && hand[0] > best {
			best = hand[0]
		}
	}
	var winners []string
	for _, id := range alive {
		if hand := s.Players[id].Hand; len(hand) > 0 && hand[0] == best {
			winners = append(winners, id)
		}
	}
	if e.TieBreak == TieFirstInOrder && len(winners) > 1 {
		winners = winners[:1]
	}
	return winners
}

// discardFromHand moves one instance of card from id's hand to their
// discards.
func (s *State) discardFromHand(id string, card Card) {
	p := s.Players[id]
	i := slices.Index(p.Hand, card)
	p.Hand = slices.Delete(p.Hand, i, i+1)
	p.Discards = append(p.Discards, card)
	s.Players[id] = p
}

// drawReplacement refills id's hand from the deck, falling back to the
// set-aside card when the deck is empty.
func (s *State) drawReplacement(id string) {
	if len(s.Deck) > 0 {
		s.draw(id)
		return
	}
	if len(s.SetAside) > 0 {
		p := s.Players[id]
		p.Hand = append(p.Hand, s.SetAside[len(s.SetAside)-1])
		s.SetAside = s.SetAside[:len(s.SetAside)-1]
		s.Players[id] = p
	}
}
