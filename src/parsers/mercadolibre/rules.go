package mercadolibre

import (
	"regexp"
	"strings"

	"github.com/username/cardstock/backend/src/models"
)

// titleRule maps a publication-title predicate to a card type. Rules are
// evaluated in order and the first match wins, so precedence on
// ambiguous titles is explicit: Steam before Roblox, the named product
// patterns before the bare-number fallbacks.
type titleRule struct {
	name  string
	match func(title string) bool
	card  models.CardType
}

func containsAny(subs ...string) func(string) bool {
	return func(title string) bool {
		for _, sub := range subs {
			if strings.Contains(title, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(title string) bool {
		for _, sub := range subs {
			if !strings.Contains(title, sub) {
				return false
			}
		}
		return true
	}
}

func matchesRe(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// The ML vocabulary: exact publication names seen in the export first,
// then the generic "saldo : N" / "N robux" / ": N" fallbacks.
var titleRules = []titleRule{
	{"steam $5 named", containsAny("steam gift card digital 5 usd argentina", "steam gift card 5 usd"), models.CardSteam5},
	{"steam $5 generic", containsAll("steam", "5 usd"), models.CardSteam5},
	{"steam $10 named", containsAny("steam gift card 10 usd", "steam gift card digital 10 usd"), models.CardSteam10},
	{"steam $10 generic", containsAll("steam", "10 usd"), models.CardSteam10},
	{"roblox $10 card", containsAll("roblox", "10 usd"), models.CardRobux1000},
	{"roblox $10 named", containsAny("tarjeta gift card digital 10 usd roblox", "gift card digital 10 usd roblox"), models.CardRobux1000},
	{"saldo 400", containsAny("saldo : 400", "saldo: 400"), models.CardRobux400},
	{"saldo 800", containsAny("saldo : 800", "saldo: 800"), models.CardRobux800},
	{"saldo 1000", containsAny("saldo : 1000", "saldo: 1000"), models.CardRobux1000},
	{"400 robux", containsAny("400 robux", "400robux"), models.CardRobux400},
	{"800 robux", containsAny("800 robux", "800robux"), models.CardRobux800},
	{"1000 robux", containsAny("1000 robux", "1000robux"), models.CardRobux1000},
	{"colon 400", matchesRe(`:\s*400\b`), models.CardRobux400},
	{"colon 800", matchesRe(`:\s*800\b`), models.CardRobux800},
	{"colon 1000", matchesRe(`:\s*1000\b`), models.CardRobux1000},
}

// DetectCardType infers the card type from a free-text publication
// title. The second return is false when no rule matches; such rows are
// surfaced as unrecognized and excluded from import.
func DetectCardType(title string) (models.CardType, bool) {
	if title == "" {
		return "", false
	}
	lower := strings.ToLower(title)
	for _, rule := range titleRules {
		if rule.match(lower) {
			return rule.card, true
		}
	}
	return "", false
}
