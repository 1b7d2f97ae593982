package extract

// Shape names the expected form of a field value.
type Shape string

const (
	ShapeDate        Shape = "date"         // 2023年04月09日
	ShapePercent     Shape = "percent"      // 54.3%
	ShapeRatio       Shape = "ratio"        // 18 / 21 -> 18/21
	ShapeCount       Shape = "count"        // 210,332人 -> 210,332
	ShapeSignedCount Shape = "signed_count" // -3,210人 -> -3,210
	ShapeText        Shape = "text"         // Pattern required, value kept as matched
)

// Rule represents one field extraction rule.
type Rule struct {
	Field   string `json:"field" yaml:"field"`                         // output column name
	Label   string `json:"label" yaml:"label"`                         // text preceding the value in the source
	Shape   Shape  `json:"shape" yaml:"shape"`                         // value form and normalization
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"` // optional override of the value pattern
}

// RuleFile describes a rules.json / rules.yaml file.
type RuleFile struct {
	IncludeDefaults bool   `json:"include_defaults" yaml:"include_defaults"`
	Rules           []Rule `json:"rules" yaml:"rules"`
}

// Field is the result of one rule. Found is false when the label and value
// were not located anywhere in the corpus.
type Field struct {
	Name  string
	Value string
	Found bool
}

// Record is the canonical single-row result of an extraction. It always
// carries one Field per rule, in rule order.
type Record struct {
	Fields []Field
}

// Header returns the field names in order.
func (r Record) Header() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

// Values returns the field values in order. Missing fields become "".
func (r Record) Values() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		if f.Found {
			out[i] = f.Value
		}
	}
	return out
}

// Get returns the value of the named field and whether it was found.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, f.Found
		}
	}
	return "", false
}

// Missing lists the names of fields that were not found.
func (r Record) Missing() []string {
	var out []string
	for _, f := range r.Fields {
		if !f.Found {
			out = append(out, f.Name)
		}
	}
	return out
}
