package entities

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	rePattaNumber = regexp.MustCompile(`(?i)\b[A-Z]{2,}[-\s]?\d+\b`)
	reCoordinates = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*°?\s*([NS])\s*,\s*(\d+(?:\.\d+)?)\s*°?\s*([EW])`)
	reDate        = regexp.MustCompile(`\b(\d{1,2})\s*([-/])\s*(\d{1,2})\s*[-/]\s*(\d{4})\b`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// claimStatuses maps lower-cased status wording to its canonical term.
var claimStatuses = map[string]string{
	"approved":      "Approved",
	"accepted":      "Approved",
	"granted":       "Approved",
	"sanctioned":    "Approved",
	"pending":       "Pending",
	"rejected":      "Rejected",
	"denied":        "Rejected",
	"verified":      "Verified",
	"under process": "Under Process",
	"in process":    "Under Process",
	"processing":    "Under Process",
	"under review":  "Under Review",
	"in review":     "Under Review",
}

var placeholders = map[string]struct{}{
	"none":      {},
	"null":      {},
	"undefined": {},
	"n/a":       {},
	"not found": {},
}

// Standardize normalizes one value according to its category. Categories
// without a rule, and values no rule matches, come back unchanged.
func Standardize(value, category string) string {
	switch category {
	case Person, PattaHolderName, PlaceName:
		return titleCase(value)
	case PattaNumber:
		if m := rePattaNumber.FindString(value); m != "" {
			return reSpaces.ReplaceAllString(strings.ToUpper(m), "-")
		}
		return strings.ToUpper(value)
	case ClaimStatus:
		if canon, ok := claimStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
			return canon
		}
		return titleCase(value)
	case Coordinates:
		m := reCoordinates.FindStringSubmatch(value)
		if m == nil {
			return value
		}
		return m[1] + " " + strings.ToUpper(m[2]) + ", " + m[3] + " " + strings.ToUpper(m[4])
	case Date:
		return reDate.ReplaceAllStringFunc(value, func(s string) string {
			p := reDate.FindStringSubmatch(s)
			return p[1] + p[2] + p[3] + p[2] + p[4]
		})
	default:
		return value
	}
}

// FilterQuality drops values that are blank or shorter than two characters,
// placeholder words such as "none", and for name-like categories values with
// no letter at all. Kept values are trimmed.
func FilterQuality(values []string, category string) []string {
	needsLetter := category == Person || category == PlaceName || category == Organization
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if utf8.RuneCountInString(v) < 2 {
			continue
		}
		if _, ok := placeholders[strings.ToLower(v)]; ok {
			continue
		}
		if needsLetter && strings.IndexFunc(v, unicode.IsLetter) < 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Finalize standardizes and quality-filters every value of m, removes
// duplicates that standardization may have produced, drops emptied
// categories and guarantees the mandatory ones. m is not modified.
func Finalize(m EntityMap, mandatory []string) EntityMap {
	out := make(EntityMap, len(m))
	for category, values := range m {
		if !IsCategory(category) {
			continue
		}
		std := make([]string, 0, len(values))
		for _, v := range values {
			std = append(std, Standardize(v, category))
		}
		if kept := union(FilterQuality(std, category)); len(kept) > 0 {
			out[category] = kept
		}
	}
	EnsureMandatory(out, mandatory)
	return out
}

// titleCase upper-cases the first letter of each whitespace-delimited token
// and lower-cases the rest. Scripts without case are returned unchanged.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			start = true
			b.WriteRune(r)
		case start:
			b.WriteRune(unicode.ToTitle(r))
			start = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
