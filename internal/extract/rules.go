package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical field names. They double as the labels searched for in the
// scraped tables and as the header of the cleaned CSV.
const (
	FieldVoteDate         = "投票日"
	FieldAnnouncementDate = "告示日"
	FieldTurnoutRate      = "投票率"
	FieldPrevTurnoutRate  = "前回投票率"
	FieldSeatsCandidates  = "定数/候補者数"
	FieldTotalVoters      = "有権者数"
	FieldMaleVoters       = "男性"
	FieldFemaleVoters     = "女性"
	FieldChange           = "前回より"
)

// DefaultRules returns the nine canonical rules in output order.
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldVoteDate, Label: FieldVoteDate, Shape: ShapeDate},
		{Field: FieldAnnouncementDate, Label: FieldAnnouncementDate, Shape: ShapeDate},
		{Field: FieldTurnoutRate, Label: FieldTurnoutRate, Shape: ShapePercent},
		{Field: FieldPrevTurnoutRate, Label: FieldPrevTurnoutRate, Shape: ShapePercent},
		{Field: FieldSeatsCandidates, Label: FieldSeatsCandidates, Shape: ShapeRatio},
		{Field: FieldTotalVoters, Label: FieldTotalVoters, Shape: ShapeCount},
		{Field: FieldMaleVoters, Label: FieldMaleVoters, Shape: ShapeCount},
		{Field: FieldFemaleVoters, Label: FieldFemaleVoters, Shape: ShapeCount},
		{Field: FieldChange, Label: FieldChange, Shape: ShapeSignedCount},
	}
}

// spaces is the whitespace class used in patterns. Go's \s is ASCII only;
// scraped cells also carry no-break, thin and ideographic spaces.
const spaces = `\s\x{00A0}\x{2009}\x{202F}\x{3000}`

// separator is what may sit between a label and its value: whitespace,
// commas, colons, the ideographic comma and stray quotes left over from
// cell quoting.
const separator = `[` + spaces + `,:、"']*`

// shapeSpec holds the value pattern and normalizer of a Shape. The pattern
// is placed inside capture group 1; suffix follows the group.
type shapeSpec struct {
	value     string
	suffix    string
	normalize func(string) string
}

var shapes = map[Shape]shapeSpec{
	ShapeDate:        {value: `\d{4}年\d{1,2}月\d{1,2}日`, normalize: strings.TrimSpace},
	ShapePercent:     {value: `\d+(?:\.\d+)?%`, normalize: strings.TrimSpace},
	ShapeRatio:       {value: `\d+[` + spaces + `]*/[` + spaces + `]*\d+`, normalize: stripSpace},
	ShapeCount:       {value: `\d[\d,]*`, suffix: `["']?人`, normalize: strings.TrimSpace},
	ShapeSignedCount: {value: `[+-]?\d[\d,]*`, suffix: `["']?人`, normalize: strings.TrimSpace},
	ShapeText:        {normalize: strings.TrimSpace},
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// compiledRule is a Rule ready to evaluate.
type compiledRule struct {
	Rule
	label     string // Label as it appears in the normalized corpus
	re        *regexp.Regexp
	normalize func(string) string

	// shadows are longer labels of other rules that contain this rule's
	// label, with the byte offset of the label inside them.
	shadows []shadow
}

type shadow struct {
	label  string
	offset int
}

// compileRules validates rules and compiles their patterns. With fold, labels
// get the same normalization as the corpus so full-width labels still match.
func compileRules(rules []Rule, fold bool) ([]compiledRule, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules")
	}

	seen := make(map[string]bool, len(rules))
	out := make([]compiledRule, 0, len(rules))

	for i, r := range rules {
		r.Field = strings.TrimSpace(r.Field)
		r.Label = strings.TrimSpace(r.Label)
		if r.Field == "" {
			return nil, fmt.Errorf("rule %d: empty field", i)
		}
		if r.Label == "" {
			r.Label = r.Field
		}
		if seen[r.Field] {
			return nil, fmt.Errorf("rule %d: duplicate field %q", i, r.Field)
		}
		seen[r.Field] = true

		if r.Shape == "" && r.Pattern != "" {
			r.Shape = ShapeText
		}
		spec, ok := shapes[r.Shape]
		if !ok {
			return nil, fmt.Errorf("rule for field=%q: unknown shape %q", r.Field, r.Shape)
		}

		value := spec.value
		if strings.TrimSpace(r.Pattern) != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return nil, fmt.Errorf("invalid pattern for field=%q: %w", r.Field, err)
			}
			value = r.Pattern
		}
		if value == "" {
			return nil, fmt.Errorf("rule for field=%q: shape %q requires a pattern", r.Field, r.Shape)
		}

		label := r.Label
		if fold {
			label = normalizeCorpus(label)
		}
		expr := regexp.QuoteMeta(label) + separator + "(" + value + ")" + spec.suffix
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for field=%q: %w", r.Field, err)
		}

		out = append(out, compiledRule{Rule: r, label: label, re: re, normalize: spec.normalize})
	}

	for i := range out {
		for j := range out {
			if i == j || len(out[j].label) <= len(out[i].label) {
				continue
			}
			if off := strings.Index(out[j].label, out[i].label); off >= 0 {
				out[i].shadows = append(out[i].shadows, shadow{label: out[j].label, offset: off})
			}
		}
	}

	return out, nil
}
