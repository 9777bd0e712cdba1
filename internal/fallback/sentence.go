package fallback

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// fuzzyAbbreviationThreshold is the Jaro-Winkler similarity above which a
// word that isn't an exact abbreviation match is still treated as a likely
// one (OCR noise, a typo, an unlisted variant spelling).
const fuzzyAbbreviationThreshold = 0.82

// abbreviations lists per-language lexicons of tokens that end in a period
// but do not terminate a sentence.
var abbreviations = map[string][]string{
	"en": {
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "ave",
		"inc", "ltd", "co", "corp", "vs", "etc", "e.g", "i.e", "a.m", "p.m",
		"u.s", "u.k", "jan", "feb", "mar", "apr", "jun", "jul", "aug",
		"sep", "sept", "oct", "nov", "dec", "mon", "tue", "wed", "thu",
		"fri", "sat", "sun",
	},
	"es": {
		"sr", "sra", "srta", "dr", "dra", "ud", "uds", "etc", "p.ej",
		"a.m", "p.m", "núm", "pág",
	},
	"fr": {
		"m", "mme", "mlle", "dr", "etc", "p.ex", "av", "bd", "n°",
	},
	"de": {
		"herr", "frau", "dr", "prof", "usw", "bzw", "z.b", "nr", "str",
	},
}

// sentenceEndings maps a script family to the punctuation class that ends a
// sentence in that script.
var sentenceEndings = map[string]string{
	"default": `.!?`,
	"zh":      "。！？",
	"ja":      "。！？",
	"ko":      "。！？",
	"ar":      "؟!.",
	"hi":      "।!?",
}

var (
	decimalPattern = regexp.MustCompile(`\d\.\d`)
	initialPattern = regexp.MustCompile(`\b[A-Z]\.$`)
	ellipsisSuffix = "..."
	urlPattern     = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+$`)
	emailPattern   = regexp.MustCompile(`(?i)\b[\w.+-]+@[\w-]+\.[\w.-]+$`)
)

// SentenceDetector finds sentence boundaries using locale-aware punctuation
// classes and an abbreviation lexicon, falling back to a small set of
// regex heuristics rather than a statistical model.
type SentenceDetector struct {
	Language      string
	ExtraAbbrevs  []string
	endingPattern *regexp.Regexp
	abbrevSet     map[string]bool
}

// NewSentenceDetector builds a SentenceDetector for the given ISO 639-1
// language code, merging in any caller-supplied abbreviation extensions.
func NewSentenceDetector(language string, extraAbbrevs ...string) *SentenceDetector {
	d := &SentenceDetector{Language: language, ExtraAbbrevs: extraAbbrevs}
	d.compile()
	return d
}

func (d *SentenceDetector) compile() {
	class := sentenceEndings["default"]
	if c, ok := sentenceEndings[d.Language]; ok {
		class = c
	}
	d.endingPattern = regexp.MustCompile(`[` + regexp.QuoteMeta(class) + `]+`)

	d.abbrevSet = map[string]bool{}
	for _, a := range abbreviations[d.Language] {
		d.abbrevSet[strings.ToLower(a)] = true
	}
	for _, a := range d.ExtraAbbrevs {
		d.abbrevSet[strings.ToLower(a)] = true
	}
}

// DetectBoundaries implements BoundaryDetector.
func (d *SentenceDetector) DetectBoundaries(text string) []TextBoundary {
	var boundaries []TextBoundary
	matches := d.endingPattern.FindAllStringIndex(text, -1)

	lastStart := 0
	for _, m := range matches {
		endPos := m[1]

		before := text[:m[0]]
		if d.isDecimalBreak(text, m[0]) {
			continue
		}
		if d.isAbbreviation(before) {
			continue
		}
		if d.isURLOrEmail(before) {
			continue
		}
		if strings.HasSuffix(text[:endPos], ellipsisSuffix) && endPos < len(text) && !unicode.IsSpace(rune(text[endPos])) {
			continue
		}

		sentence := text[lastStart:endPos]
		metadata := map[string]any{}
		confidence := d.confidence(sentence, text, endPos, metadata)

		boundaries = append(boundaries, TextBoundary{
			Start:        lastStart,
			End:          endPos,
			BoundaryType: BoundarySentence,
			Confidence:   confidence,
			Metadata:     metadata,
		})
		lastStart = endPos
	}

	if lastStart < len(text) && strings.TrimSpace(text[lastStart:]) != "" {
		metadata := map[string]any{"trailing": true}
		boundaries = append(boundaries, TextBoundary{
			Start:        lastStart,
			End:          len(text),
			BoundaryType: BoundarySentence,
			Confidence:   d.confidence(text[lastStart:], text, len(text), metadata),
			Metadata:     metadata,
		})
	}

	return boundaries
}

// isDecimalBreak reports whether the punctuation at pos sits inside a
// decimal number like "3.14".
func (d *SentenceDetector) isDecimalBreak(text string, pos int) bool {
	start := pos - 1
	if start < 0 {
		start = 0
	}
	end := pos + 2
	if end > len(text) {
		end = len(text)
	}
	return decimalPattern.MatchString(text[start:end])
}

// isAbbreviation reports whether the text immediately preceding a
// terminator ends in a known abbreviation or a single-letter initial.
func (d *SentenceDetector) isAbbreviation(before string) bool {
	trimmed := strings.TrimRight(before, " \t")
	if trimmed == "" {
		return false
	}
	if initialPattern.MatchString(trimmed + ".") {
		return true
	}

	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,;:"))
	return d.abbrevSet[last]
}

// fuzzyAbbreviationScore returns the highest Jaro-Winkler similarity
// between the last word in before and any abbreviation in the active
// lexicon, or 0 if before has no trailing word.
func (d *SentenceDetector) fuzzyAbbreviationScore(before string) float64 {
	trimmed := strings.TrimRight(before, " \t")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return 0
	}
	last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,;:"))
	if last == "" {
		return 0
	}

	var best float64
	for abbrev := range d.abbrevSet {
		score, err := edlib.StringsSimilarity(last, abbrev, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) > best {
			best = float64(score)
		}
	}
	return best
}

func (d *SentenceDetector) isURLOrEmail(before string) bool {
	trimmed := strings.TrimRight(before, " \t")
	return urlPattern.MatchString(trimmed) || emailPattern.MatchString(trimmed)
}

// confidence implements the scoring heuristics: base 0.9, penalized for
// short sentences, a lowercase opener, or a trailing abbreviation; bonused
// for terminal punctuation followed by a capitalized word.
func (d *SentenceDetector) confidence(sentence, fullText string, endPos int, metadata map[string]any) float64 {
	confidence := 0.9
	trimmed := strings.TrimSpace(sentence)

	if len(trimmed) < 10 {
		confidence -= 0.2
		metadata["short"] = true
	}
	terminal := false
	if trimmed != "" {
		r := []rune(trimmed)
		if unicode.IsLower(r[0]) {
			confidence -= 0.1
			metadata["lowercase_start"] = true
		}
		terminal = strings.ContainsRune(".!?", r[len(r)-1])
	}
	if d.isAbbreviation(trimmed) {
		confidence -= 0.2
		metadata["trailing_abbreviation"] = true
	} else if score := d.fuzzyAbbreviationScore(trimmed); score >= fuzzyAbbreviationThreshold {
		confidence -= 0.08
		metadata["fuzzy_abbreviation_candidate"] = score
	}

	after := strings.TrimLeft(fullText[endPos:], " \t\n")
	if after != "" && unicode.IsUpper([]rune(after)[0]) {
		metadata["capitalized_follower"] = true
		if terminal {
			confidence += 0.05
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
