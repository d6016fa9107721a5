package moderation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity decides what a matched term does to a submission.
type Severity string

const (
	// SeveritySevere terms block the text outright.
	SeveritySevere Severity = "severe"
	// SeverityCaution terms send the text to human review.
	SeverityCaution Severity = "caution"
)

// Term maps one banned or sensitive word to a category.
type Term struct {
	Term     string   `yaml:"term"`
	Category string   `yaml:"category"`
	Severity Severity `yaml:"-"`
}

// Lexicon is the ordered term configuration the classifier runs over.
type Lexicon struct {
	Terms []Term
}

type lexiconFile struct {
	Severe  []Term `yaml:"severe"`
	Caution []Term `yaml:"caution"`
}

// ErrEmptyTerm is returned when a lexicon entry has no text.
var ErrEmptyTerm = errors.New("lexicon term must not be empty")

// ParseLexicon decodes a YAML document with `severe` and `caution` lists.
func ParseLexicon(data []byte) (Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}

	lexicon := Lexicon{Terms: make([]Term, 0, len(file.Severe)+len(file.Caution))}
	add := func(items []Term, severity Severity) error {
		for i, item := range items {
			item.Term = strings.TrimSpace(item.Term)
			item.Category = strings.TrimSpace(item.Category)
			if item.Term == "" {
				return fmt.Errorf("%s[%d]: %w", severity, i, ErrEmptyTerm)
			}
			if item.Category == "" {
				item.Category = string(severity)
			}
			item.Severity = severity
			lexicon.Terms = append(lexicon.Terms, item)
		}
		return nil
	}
	if err := add(file.Severe, SeveritySevere); err != nil {
		return Lexicon{}, err
	}
	if err := add(file.Caution, SeverityCaution); err != nil {
		return Lexicon{}, err
	}
	return lexicon, nil
}

// LoadLexicon reads a YAML lexicon from disk. An empty path yields the
// built-in lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// DefaultLexicon is a small placeholder list; deployments ship their own
// file through LEXICON_PATH.
func DefaultLexicon() Lexicon {
	return Lexicon{Terms: []Term{
		{Term: "kill you", Category: "violence", Severity: SeveritySevere},
		{Term: "rape", Category: "sexual_violence", Severity: SeveritySevere},
		{Term: "খুন করব", Category: "violence", Severity: SeveritySevere},
		{Term: "ধর্ষণ", Category: "sexual_violence", Severity: SeveritySevere},
		{Term: "damn", Category: "profanity", Severity: SeverityCaution},
		{Term: "shit", Category: "profanity", Severity: SeverityCaution},
		{Term: "bloody", Category: "profanity", Severity: SeverityCaution},
		{Term: "শালা", Category: "profanity", Severity: SeverityCaution},
		{Term: "হারামি", Category: "profanity", Severity: SeverityCaution},
		{Term: "রাজনীতি", Category: "sensitive_topic", Severity: SeverityCaution},
		{Term: "politics", Category: "sensitive_topic", Severity: SeverityCaution},
	}}
}
