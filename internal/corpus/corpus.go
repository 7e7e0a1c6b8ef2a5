// Package corpus provides the static question/answer corpus and a TF-IDF
// similarity matcher over it.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Entry is a single question/answer pair.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Corpus holds the loaded entries. Questions are normalized once at load;
// the corpus is read-only during serving.
type Corpus struct {
	entries    []Entry
	normalized []string
}

// New builds a corpus from entries, normalizing each question.
func New(entries []Entry) *Corpus {
	c := &Corpus{
		entries:    entries,
		normalized: make([]string, len(entries)),
	}
	for i, e := range entries {
		c.normalized[i] = Normalize(e.Question)
	}
	return c
}

// Load reads a JSON array of entries from path.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corpus: parse %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus: %s contains no entries", path)
	}
	return New(entries), nil
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Entry returns the entry at index i.
func (c *Corpus) Entry(i int) Entry {
	return c.entries[i]
}

// NormalizedQuestion returns the pre-normalized question at index i.
func (c *Corpus) NormalizedQuestion(i int) string {
	return c.normalized[i]
}

// Normalize lower-cases, strips punctuation, and collapses whitespace. The
// same transform is applied to corpus questions at load and to queries per
// call so the two sides always compare in the same space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation becomes a separator so "what's" -> "what s".
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
