package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// LoadRuleFile loads and validates a JSON or YAML rule file. The format is
// chosen by extension (.yaml/.yml, otherwise JSON).
func LoadRuleFile(path string) (*RuleFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rf RuleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &rf); err != nil {
			return nil, fmt.Errorf("parse rules yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &rf); err != nil {
			return nil, fmt.Errorf("parse rules json: %w", err)
		}
	}

	if len(rf.Rules) == 0 && !rf.IncludeDefaults {
		return nil, fmt.Errorf("rules file has no rules")
	}
	if !rf.IncludeDefaults {
		defined := make(map[string]bool, len(rf.Rules))
		for _, r := range rf.Rules {
			defined[strings.TrimSpace(r.Field)] = true
		}
		for _, d := range DefaultRules() {
			if !defined[d.Field] {
				return nil, fmt.Errorf("rules file omits canonical field %q (set include_defaults: true to inherit it)", d.Field)
			}
		}
	}
	if _, err := compileRules(rf.Effective(), false); err != nil {
		return nil, err
	}
	return &rf, nil
}

// Effective returns the rule table described by the file. It always starts
// from the canonical rules so the record keeps its nine fields in order: a
// rule naming a canonical field replaces it in place and any other rule is
// appended after them.
func (rf *RuleFile) Effective() []Rule {
	out := DefaultRules()
	idx := make(map[string]int, len(out))
	for i, r := range out {
		idx[r.Field] = i
	}
	for _, r := range rf.Rules {
		if i, ok := idx[strings.TrimSpace(r.Field)]; ok {
			out[i] = r
			continue
		}
		out = append(out, r)
	}
	return out
}
