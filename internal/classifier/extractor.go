package classifier

import "strings"

// serviceKeywords maps a service category to the stems and phrases that
// indicate it. Checked in order; the first category with a hit wins.
// Single-word stems match by token prefix so "pipes" hits "pipe" and
// "painting" hits "paint".
var serviceKeywords = []struct {
	service  string
	keywords []string
}{
	{"plumbing", []string{"plumb", "pipe", "faucet", "sink", "toilet", "drain", "water heater", "leak", "clog", "flood"}},
	{"electrical", []string{"electric", "outlet", "breaker", "wiring", "light", "panel", "circuit"}},
	{"hvac", []string{"hvac", "furnace", "air condition", "heating", "cooling", "thermostat", "ac unit"}},
	{"carpentry", []string{"carpent", "cabinet", "shelf", "shelv", "door", "deck", "fence", "drywall"}},
	{"painting", []string{"paint"}},
	{"roofing", []string{"roof", "gutter", "shingle"}},
	{"appliance", []string{"appliance", "dishwasher", "washer", "dryer", "fridge", "refrigerator", "oven", "stove"}},
}

// timeKeywords are the phrases recognized as a scheduling preference, in
// the order they are checked. The first match is kept so a message naming
// several windows stays deterministic.
var timeKeywords = []string{
	"tomorrow", "today", "tonight", "this morning", "this afternoon",
	"this evening", "morning", "afternoon", "evening", "weekend",
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday", "next week", "asap",
}

// Extract pulls structured context out of raw message text. The returned
// map contains only the keys that were actually found: service_type,
// preferred_time and is_urgent. It is pure and never returns nil.
func Extract(text string) map[string]any {
	ctx := make(map[string]any)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return ctx
	}

	tokens := tokenList(normalized)
	for _, sk := range serviceKeywords {
		if matchesStems(normalized, tokens, sk.keywords) {
			ctx["service_type"] = sk.service
			break
		}
	}

	for _, kw := range timeKeywords {
		if strings.Contains(normalized, kw) {
			ctx["preferred_time"] = kw
			break
		}
	}

	if HasEmergencyKeywords(text) {
		ctx["is_urgent"] = true
	}
	return ctx
}

// tokenList is tokenize keeping order, for prefix matching.
func tokenList(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func matchesStems(normalized string, tokens []string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(normalized, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}
