package merge

import (
	"regexp"
	"strings"
)

// nameLengthMargin is the character margin beyond which a longer
// display name counts as "more complete" rather than a formatting
// difference.
const nameLengthMargin = 3

// genericTitles are role words too vague to beat a more specific title
// from a lower-confidence source.
var genericTitles = map[string]bool{
	"manager":    true,
	"director":   true,
	"engineer":   true,
	"analyst":    true,
	"consultant": true,
	"executive":  true,
	"associate":  true,
	"lead":       true,
}

// placeholderMarkers flag sentinel addresses that enrichment providers
// emit when they could not find a real one.
var placeholderMarkers = []string{
	"placeholder",
	"unknown@",
	"no-email",
	"noemail",
	"sample@",
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// candidate pairs a field value with the source that contributed it.
type candidate struct {
	value  string
	source Source
}

// decision is a strategy's verdict: the winning value, its source, and
// a human-readable reason for the conflict log.
type decision struct {
	value  string
	source Source
	reason string
}

// isPlaceholderEmail reports whether the address is a known sentinel.
func isPlaceholderEmail(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isValidEmail reports whether the address is syntactically plausible
// and not a placeholder sentinel.
func isValidEmail(v string) bool {
	return emailPattern.MatchString(strings.TrimSpace(v)) && !isPlaceholderEmail(v)
}

// resolveConflict picks a winner between two differing values for the
// same field. Both values are non-empty and already known to differ.
func resolveConflict(k fieldKind, base, incoming candidate) decision {
	switch k {
	case kindEmail:
		return resolveEmail(base, incoming)
	case kindName:
		return resolveName(base, incoming)
	case kindTitle:
		return resolveTitle(base, incoming)
	case kindScore:
		return resolveScore(base, incoming)
	case kindURL:
		return resolveURL(base, incoming)
	case kindPhone:
		return preferStructured(base, incoming, "structured source preferred for phone numbers")
	default:
		return resolveDefault(base, incoming)
	}
}

func resolveEmail(base, incoming candidate) decision {
	baseValid := isValidEmail(base.value)
	incomingValid := isValidEmail(incoming.value)
	switch {
	case baseValid && !incomingValid:
		return decision{base.value, base.source, "rejected placeholder or invalid address"}
	case incomingValid && !baseValid:
		return decision{incoming.value, incoming.source, "rejected placeholder or invalid address"}
	default:
		// Both valid, or neither: fall back to source trust.
		return preferStructured(base, incoming, "structured source preferred for identifier fields")
	}
}

func resolveName(base, incoming candidate) decision {
	baseLen := len(strings.TrimSpace(base.value))
	incomingLen := len(strings.TrimSpace(incoming.value))
	if incomingLen-baseLen > nameLengthMargin {
		return decision{incoming.value, incoming.source, "more complete name preferred"}
	}
	if baseLen-incomingLen > nameLengthMargin {
		return decision{base.value, base.source, "more complete name preferred"}
	}
	return preferStructured(base, incoming, "structured source preferred for names")
}

func resolveTitle(base, incoming candidate) decision {
	structured, other := orderByStructured(base, incoming)
	if isGenericTitle(structured.value) && !isGenericTitle(other.value) &&
		len(other.value) > len(structured.value) {
		return decision{other.value, other.source, "more specific title preferred over generic role word"}
	}
	return preferStructured(base, incoming, "structured source preferred for titles")
}

func resolveScore(base, incoming candidate) decision {
	if parseScore(incoming.value) > parseScore(base.value) {
		return decision{incoming.value, incoming.source, "higher score retained"}
	}
	return decision{base.value, base.source, "higher score retained"}
}

func resolveURL(base, incoming candidate) decision {
	baseSecure := strings.HasPrefix(strings.ToLower(base.value), "https://")
	incomingSecure := strings.HasPrefix(strings.ToLower(incoming.value), "https://")
	switch {
	case baseSecure && !incomingSecure:
		return decision{base.value, base.source, "secure URL scheme preferred"}
	case incomingSecure && !baseSecure:
		return decision{incoming.value, incoming.source, "secure URL scheme preferred"}
	default:
		return preferStructured(base, incoming, "structured source preferred for URLs")
	}
}

func resolveDefault(base, incoming candidate) decision {
	if incoming.source.Confidence > base.source.Confidence {
		return decision{incoming.value, incoming.source, "higher source confidence preferred"}
	}
	return decision{base.value, base.source, "higher source confidence preferred"}
}

// preferStructured picks the structured side, then the higher-confidence
// side, then the base (existing value wins exact ties).
func preferStructured(base, incoming candidate, reason string) decision {
	if incoming.source.Structured && !base.source.Structured {
		return decision{incoming.value, incoming.source, reason}
	}
	if base.source.Structured && !incoming.source.Structured {
		return decision{base.value, base.source, reason}
	}
	if incoming.source.Confidence > base.source.Confidence {
		return decision{incoming.value, incoming.source, reason}
	}
	return decision{base.value, base.source, reason}
}

// orderByStructured returns (structured-or-base, other). When neither
// side is structured the higher-confidence side plays the structured
// role.
func orderByStructured(base, incoming candidate) (candidate, candidate) {
	if incoming.source.Structured && !base.source.Structured {
		return incoming, base
	}
	if base.source.Structured && !incoming.source.Structured {
		return base, incoming
	}
	if incoming.source.Confidence > base.source.Confidence {
		return incoming, base
	}
	return base, incoming
}

func isGenericTitle(v string) bool {
	return genericTitles[strings.ToLower(strings.TrimSpace(v))]
}
