package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CardType is the denomination/SKU of a gift card. It is a closed set:
// the three Robux denominations plus the two Steam cards.
type CardType string

const (
	CardRobux400  CardType = "400"
	CardRobux800  CardType = "800"
	CardRobux1000 CardType = "1000"
	CardSteam5    CardType = "steam5"
	CardSteam10   CardType = "steam10"
)

// AllCardTypes lists every valid card type in display order.
var AllCardTypes = []CardType{CardRobux400, CardRobux800, CardRobux1000, CardSteam5, CardSteam10}

var cardTypeLabels = map[CardType]string{
	CardRobux400:  "400 Robux",
	CardRobux800:  "800 Robux",
	CardRobux1000: "1000 Robux",
	CardSteam5:    "Steam $5",
	CardSteam10:   "Steam $10",
}

func (c CardType) Valid() bool {
	_, ok := cardTypeLabels[c]
	return ok
}

func (c CardType) IsRobux() bool {
	return c == CardRobux400 || c == CardRobux800 || c == CardRobux1000
}

// Label returns the human-readable name used in exports and in the
// spreadsheet mirror (e.g. "400 Robux", "Steam $5").
func (c CardType) Label() string {
	if label, ok := cardTypeLabels[c]; ok {
		return label
	}
	return string(c)
}

// ParseCardType accepts the internal key ("400", "steam5"), the display
// label ("400 Robux", "Steam $5") or any recognizable variant of either.
func ParseCardType(s string) (CardType, bool) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return "", false
	}
	if strings.Contains(str, "steam") {
		if strings.Contains(str, "10") {
			return CardSteam10, true
		}
		if strings.Contains(str, "5") {
			return CardSteam5, true
		}
		return "", false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, str)
	switch digits {
	case "400":
		return CardRobux400, true
	case "800":
		return CardRobux800, true
	case "1000":
		return CardRobux1000, true
	}
	return "", false
}

// MarshalJSON keeps wire compatibility with the original dataset: Robux
// denominations are stored as JSON numbers, Steam cards as strings.
func (c CardType) MarshalJSON() ([]byte, error) {
	if c.IsRobux() {
		return []byte(string(c)), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts both representations (number or string).
func (c *CardType) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		parsed, ok := ParseCardType(strconv.FormatFloat(v, 'f', -1, 64))
		if !ok {
			return fmt.Errorf("unknown card type %v", v)
		}
		*c = parsed
	case string:
		parsed, ok := ParseCardType(v)
		if !ok {
			return fmt.Errorf("unknown card type %q", v)
		}
		*c = parsed
	default:
		return fmt.Errorf("card type must be a number or string, got %T", raw)
	}
	return nil
}
