package classifier

import (
	"strings"
	"unicode"

	"github.com/karenbot/karen/internal/models"
)

// Keyword sets checked in priority order. Emergency always wins so urgent
// messages short-circuit normal conversation flow; the question check runs
// last as a fallback before "other". Single-word keywords match whole
// words, multi-word keywords match as phrases.
var (
	emergencyKeywords = []string{
		"emergency", "urgent", "urgently", "asap", "flooding", "flooded",
		"gas leak", "burst pipe", "no heat", "no power", "sparking",
		"sewage backup", "fire", "smoke",
	}
	appointmentKeywords = []string{
		"appointment", "schedule", "scheduled", "reschedule", "book",
		"booking", "availability", "available", "come out", "stop by",
		"swing by", "visit",
	}
	quoteKeywords = []string{
		"quote", "estimate", "pricing", "price", "cost", "charge",
		"how much", "rate", "fee",
	}
	confirmationKeywords = []string{
		"confirm", "confirmed", "confirmation", "yes", "yep", "yeah",
		"sure", "sounds good", "works", "perfect", "great", "deal",
		"see you", "ok", "okay",
	}
	greetingKeywords = []string{
		"hello", "hi", "hey", "howdy", "greetings", "good morning",
		"good afternoon", "good evening",
	}
	interrogativeWords = []string{
		"what", "when", "where", "who", "why", "how", "can", "could",
		"do", "does", "would", "will", "is", "are",
	}
)

// Classify maps raw message text to exactly one message type. It is pure
// and deterministic: case-insensitive keyword matching in priority order,
// with empty or whitespace-only text classified as "other".
func Classify(text string) models.MessageType {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return models.MessageTypeOther
	}

	words := tokenize(normalized)
	switch {
	case matchesAny(normalized, words, emergencyKeywords):
		return models.MessageTypeEmergency
	case matchesAny(normalized, words, appointmentKeywords):
		return models.MessageTypeAppointment
	case matchesAny(normalized, words, quoteKeywords):
		return models.MessageTypeQuote
	case matchesAny(normalized, words, confirmationKeywords):
		return models.MessageTypeConfirmation
	case matchesAny(normalized, words, greetingKeywords):
		return models.MessageTypeGreeting
	}

	if strings.Contains(normalized, "?") || matchesAny(normalized, words, interrogativeWords) {
		return models.MessageTypeQuestion
	}
	return models.MessageTypeOther
}

// HasEmergencyKeywords reports whether text contains any emergency
// indicator. It backs both the classifier's emergency branch and the
// extractor's urgency flag.
func HasEmergencyKeywords(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	return matchesAny(normalized, tokenize(normalized), emergencyKeywords)
}

// tokenize splits lowercased text into words, dropping punctuation and
// emoji so "EMERGENCY!" still matches "emergency".
func tokenize(normalized string) map[string]struct{} {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

func matchesAny(normalized string, words map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(normalized, kw) {
				return true
			}
			continue
		}
		if _, ok := words[kw]; ok {
			return true
		}
	}
	return false
}
