package moderation

import (
	"sort"
	"strings"
	"unicode"
)

// Status is the three-way classifier outcome.
type Status string

const (
	StatusOK              Status = "ok"
	StatusReviewSuggested Status = "review_suggested"
	StatusSevereBlock     Status = "severe_block"
)

// ReasonSensitiveContent is the reason attached to severe blocks.
const ReasonSensitiveContent = "sensitive content"

// Verdict is the result of classifying one text.
type Verdict struct {
	Status Status   `json:"status"`
	Reason string   `json:"reason,omitempty"`
	Flags  []string `json:"flags,omitempty"`
}

type compiledTerm struct {
	term   Term
	needle []rune
	latin  bool
}

// Classifier matches text against a precompiled lexicon. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	terms []compiledTerm
}

// NewClassifier compiles the lexicon. Empty terms are skipped.
func NewClassifier(lexicon Lexicon) *Classifier {
	c := &Classifier{terms: make([]compiledTerm, 0, len(lexicon.Terms))}
	for _, term := range lexicon.Terms {
		needle := []rune(normalize(term.Term))
		if len(needle) == 0 {
			continue
		}
		c.terms = append(c.terms, compiledTerm{term: term, needle: needle, latin: hasLatin(needle)})
	}
	return c
}

// Classify is a convenience wrapper for one-off classification.
func Classify(text string, lexicon Lexicon) Verdict {
	return NewClassifier(lexicon).Classify(text)
}

type match struct {
	pos   int
	order int
	term  Term
}

// Classify scans text for every configured term. Severe matches win over
// caution matches.
func (c *Classifier) Classify(text string) Verdict {
	haystack := []rune(normalize(text))
	if len(haystack) == 0 {
		return Verdict{Status: StatusOK}
	}

	var severe, caution []match
	for i, ct := range c.terms {
		pos := indexOf(haystack, ct.needle, ct.latin)
		if pos < 0 {
			continue
		}
		m := match{pos: pos, order: i, term: ct.term}
		if ct.term.Severity == SeveritySevere {
			severe = append(severe, m)
		} else {
			caution = append(caution, m)
		}
	}

	sortMatches(severe)
	sortMatches(caution)

	if len(severe) > 0 {
		return Verdict{Status: StatusSevereBlock, Reason: ReasonSensitiveContent, Flags: flagsOf(severe)}
	}
	if len(caution) > 0 {
		return Verdict{Status: StatusReviewSuggested, Reason: cautionReason(caution), Flags: flagsOf(caution)}
	}
	return Verdict{Status: StatusOK}
}

// sortMatches orders matches by where they occur in the text.
func sortMatches(matches []match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].pos != matches[j].pos {
			return matches[i].pos < matches[j].pos
		}
		return matches[i].order < matches[j].order
	})
}

func flagsOf(matches []match) []string {
	seen := make(map[string]struct{}, len(matches))
	flags := make([]string, 0, len(matches))
	for _, m := range matches {
		key := normalize(m.term.Term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		flags = append(flags, m.term.Term)
	}
	return flags
}

func cautionReason(matches []match) string {
	seen := make(map[string]struct{}, len(matches))
	categories := make([]string, 0, len(matches))
	for _, m := range matches {
		category := strings.ReplaceAll(m.term.Category, "_", " ")
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	return "may need review: " + strings.Join(categories, ", ")
}

// indexOf returns the rune offset of the first acceptable occurrence of
// needle. Latin-script needles must sit on word boundaries; Bengali needles
// match as plain substrings.
func indexOf(haystack, needle []rune, latin bool) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if !equalRunes(haystack[i:i+n], needle) {
			continue
		}
		if !latin {
			return i
		}
		if i > 0 && isWordRune(haystack[i-1]) {
			continue
		}
		if i+n < len(haystack) && isWordRune(haystack[i+n]) {
			continue
		}
		return i
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func hasLatin(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

// normalize lower-cases, drops zero-width characters and collapses runs of
// whitespace so spacing tricks do not hide a multi-word term.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			continue
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
