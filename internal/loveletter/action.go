package loveletter

import "errors"

var (
	ErrUnknownCard      = errors.New("INVALID_ACTION: unknown card")
	ErrTargetRequired   = errors.New("INVALID_ACTION: card requires a target player")
	ErrTargetForbidden  = errors.New("INVALID_ACTION: card does not take a target")
	ErrDeclareRequired  = errors.New("INVALID_ACTION: guard requires a declared rank")
	ErrDeclareForbidden = errors.New("INVALID_ACTION: only guard declares a rank")
	ErrDeclareGuard     = errors.New("INVALID_ACTION: guard cannot declare guard")
)

// Action is a request to play a card. Target is required for Guard, Baron,
// Prince and King; Declared only for Guard and never Guard itself.
type Action struct {
	Card     Card   `json:"card"`
	Acting   string `json:"acting"`
	Target   string `json:"target,omitempty"`
	Declared Card   `json:"declared,omitempty"`
}

// Validate rejects malformed payloads before they reach the engine.
func (a Action) Validate() error {
	if !a.Card.Valid() {
		return ErrUnknownCard
	}
	if a.Card.NeedsTarget() && a.Target == "" {
		return ErrTargetRequired
	}
	if !a.Card.TakesTarget() && a.Target != "" {
		return ErrTargetForbidden
	}
	if a.Card == Guard {
		if !a.Declared.Valid() {
			return ErrDeclareRequired
		}
		if a.Declared == Guard {
			return ErrDeclareGuard
		}
	} else if a.Declared != 0 {
		return ErrDeclareForbidden
	}
	return nil
}
