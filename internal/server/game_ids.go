package server

import (
	"errors"
	"math/rand"
	"strings"
)

// GenerateGameID returns a 4-letter code not present in usedCodes. Short
// codes keep join links and QR codes human-typable.
func GenerateGameID(usedCodes map[string]bool) string {
	for {
		code := make([]byte, 4)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		gameID := string(code)

		if !usedCodes[gameID] {
			return gameID
		}
	}
}

func ValidateGameID(code string) error {
	if len(code) != 4 {
		return errors.New("GAME_ID_INVALID: Game ID must be exactly 4 characters")
	}

	code = strings.ToUpper(code)
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return errors.New("GAME_ID_INVALID: Game ID must contain only letters A-Z")
		}
	}

	return nil
}

func NormalizeGameID(code string) string {
	return strings.ToUpper(code)
}
