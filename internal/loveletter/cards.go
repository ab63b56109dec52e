package loveletter

import "math/rand"

// Card is a rank in the fixed 16-card deck. Ranks are ordered for Baron
// comparisons, Princess highest.
type Card int

const (
	Guard Card = iota + 1
	Priest
	Baron
	Handmaiden
	Prince
	King
	Countess
	Princess
)

var cardString = map[Card]string{
	Guard:      "Guard",
	Priest:     "Priest",
	Baron:      "Baron",
	Handmaiden: "Handmaiden",
	Prince:     "Prince",
	King:       "King",
	Countess:   "Countess",
	Princess:   "Princess",
}

func (c Card) String() string {
	return cardString[c]
}

// Valid reports whether c is one of the eight playable ranks.
func (c Card) Valid() bool {
	return c >= Guard && c <= Princess
}

// NeedsTarget reports whether playing c requires a target player.
func (c Card) NeedsTarget() bool {
	switch c {
	case Guard, Baron, Prince, King:
		return true
	}
	return false
}

// TakesTarget reports whether playing c accepts a target player. The Priest
// targets a player for its reveal but resolves as a plain discard without
// one.
func (c Card) TakesTarget() bool {
	return c.NeedsTarget() || c == Priest
}

var deckCounts = map[Card]int{
	Guard:      5,
	Priest:     2,
	Baron:      2,
	Handmaiden: 2,
	Prince:     2,
	King:       1,
	Countess:   1,
	Princess:   1,
}

// NewDeck returns the fixed 16-card multiset, unshuffled.
func NewDeck() []Card {
	deck := make([]Card, 0, 16)
	for card := Guard; card <= Princess; card++ {
		for range deckCounts[card] {
			deck = append(deck, card)
		}
	}
	return deck
}

// Shuffle permutes cards in place. The top of the deck is the last element.
func Shuffle(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
