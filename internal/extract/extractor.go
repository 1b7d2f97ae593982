// Package extract locates the canonical election fields in a scraped table.
//
// The table structure of the source pages is unreliable, so the table is
// flattened into one text corpus and every field is located by its Japanese
// label followed by a value of the expected shape. Each rule runs against the
// whole corpus on its own; a field that cannot be found is reported as not
// found rather than as an error.
package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Extractor evaluates a compiled rule table. It holds no mutable state and
// may be shared.
type Extractor struct {
	rules     []compiledRule
	foldWidth bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWidthFold controls whether full-width characters in the corpus are
// folded to their ASCII forms before matching. Enabled by default.
func WithWidthFold(enabled bool) Option {
	return func(e *Extractor) { e.foldWidth = enabled }
}

// New compiles rules into an Extractor.
func New(rules []Rule, opts ...Option) (*Extractor, error) {
	e := &Extractor{foldWidth: true}
	for _, opt := range opts {
		opt(e)
	}
	compiled, err := compileRules(rules, e.foldWidth)
	if err != nil {
		return nil, err
	}
	e.rules = compiled
	return e, nil
}

var defaultExtractor = mustNew(DefaultRules())

func mustNew(rules []Rule) *Extractor {
	e, err := New(rules)
	if err != nil {
		panic(err)
	}
	return e
}

// Default returns the extractor for the nine canonical fields.
func Default() *Extractor { return defaultExtractor }

// Rules returns a copy of the effective rule table.
func (e *Extractor) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Rule
	}
	return out
}

// Flatten joins every cell of rows, row by row, with a single space.
func Flatten(rows [][]string) string {
	var b strings.Builder
	first := true
	for _, row := range rows {
		for _, cell := range row {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(cell)
		}
	}
	return b.String()
}

// Extract flattens rows and extracts the record from the result.
func (e *Extractor) Extract(rows [][]string) Record {
	return e.ExtractText(Flatten(rows))
}

// ExtractText extracts one record from an already flattened corpus.
func (e *Extractor) ExtractText(corpus string) Record {
	if e.foldWidth {
		corpus = normalizeCorpus(corpus)
	}

	rec := Record{Fields: make([]Field, len(e.rules))}
	for i := range e.rules {
		r := &e.rules[i]
		v, ok := r.find(corpus)
		rec.Fields[i] = Field{Name: r.Field, Value: v, Found: ok}
	}
	return rec
}

// foldReplacer maps characters that width folding leaves alone: dash and
// minus variants onto '-', and no-break and thin spaces onto ' '.
var foldReplacer = strings.NewReplacer(
	"\u2212", "-", // minus sign
	"\u2010", "-", // hyphen
	"\u2012", "-", // figure dash
	"\u2013", "-", // en dash
	"\u00a0", " ", // no-break space
	"\u2009", " ", // thin space
	"\u202f", " ", // narrow no-break space
)

func normalizeCorpus(s string) string {
	return foldReplacer.Replace(width.Fold.String(s))
}

// find returns the normalized value of the first match of r in corpus that
// does not belong to a longer label of another rule.
func (r *compiledRule) find(corpus string) (string, bool) {
	offset := 0
	for offset <= len(corpus) {
		loc := r.re.FindStringSubmatchIndex(corpus[offset:])
		if loc == nil {
			return "", false
		}
		start := offset + loc[0]
		if !r.shadowed(corpus, start) {
			return r.normalize(corpus[offset+loc[2] : offset+loc[3]]), true
		}
		_, size := utf8.DecodeRuneInString(corpus[start:])
		offset = start + size
	}
	return "", false
}

// shadowed reports whether the label found at start is part of a longer
// label, e.g. 投票率 inside 前回投票率.
func (r *compiledRule) shadowed(corpus string, start int) bool {
	for _, s := range r.shadows {
		from := start - s.offset
		if from < 0 || from+len(s.label) > len(corpus) {
			continue
		}
		if corpus[from:from+len(s.label)] == s.label {
			return true
		}
	}
	return false
}
