// Package textnorm cleans raw OCR output into a canonical single-line form.
//
// Both exported functions are pure and total: empty input yields "" and no
// input can make them fail.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// correction is one heuristic OCR-confusion fix. Corrections run in table
// order on whitespace-collapsed, artifact-stripped text.
type correction struct {
	name  string
	apply func(string) string
}

var (
	// Anything that is not a letter, mark, digit, underscore, whitespace or
	// allow-listed punctuation is an artifact.
	reArtifact = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\-.,;:()\[\]{}'"/\\]`)
	reWord     = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
	reRN       = regexp.MustCompile(`(?i)rn`)
	rePipeBang = regexp.MustCompile(`[|!]`)

	reLineBreak  = regexp.MustCompile(`\r\n|\r|\n`)
	rePunctSpace = regexp.MustCompile(`\s*([,.;:!?])\s*`)
	reMultiSpace = regexp.MustCompile(`\s{2,}`)
)

var corrections = []correction{
	{name: "standalone l -> I", apply: replaceStandalone("l", "I")},
	{name: "standalone 0 -> O", apply: replaceStandalone("0", "O")},
	{name: "rn -> m", apply: func(s string) string { return reRN.ReplaceAllString(s, "m") }},
	{name: "| or ! -> l", apply: func(s string) string { return rePipeBang.ReplaceAllString(s, "l") }},
}

// replaceStandalone swaps whole words equal (case-insensitively) to from.
// Word boundaries are Unicode aware, unlike regexp's ASCII \b.
func replaceStandalone(from, to string) func(string) string {
	return func(s string) string {
		return reWord.ReplaceAllStringFunc(s, func(w string) string {
			if strings.EqualFold(w, from) {
				return to
			}
			return w
		})
	}
}

// Clean applies Unicode compatibility decomposition (folding ligatures and
// Latin diacritics), strips OCR artifacts, applies the correction table,
// recomposes and collapses whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = foldLatinMarks(norm.NFKD.String(text))
	text = collapseSpace(text)
	text = reArtifact.ReplaceAllString(text, " ")
	text = collapseSpace(text)
	for _, c := range corrections {
		text = c.apply(text)
	}
	text = norm.NFC.String(text)
	return collapseSpace(text)
}

// StandardizeSpacing flattens line breaks and normalizes spacing around
// sentence punctuation to "no space before, one space after".
func StandardizeSpacing(text string) string {
	if text == "" {
		return ""
	}
	text = reLineBreak.ReplaceAllString(text, " ")
	text = rePunctSpace.ReplaceAllString(text, "$1 ")
	text = reMultiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// foldLatinMarks drops nonspacing marks that sit on a Latin base letter, so
// "café" folds to "cafe". Marks on other scripts carry vowel signs and viramas
// and are kept.
func foldLatinMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latinBase := false
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
			b.WriteRune(r)
			continue
		}
		latinBase = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
