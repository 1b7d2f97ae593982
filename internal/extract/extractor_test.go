package extract

import (
	"reflect"
	"strings"
	"testing"
)

const scenarioCorpus = "投票日 2023年04月09日 告示日 2023年03月26日 投票率 54.3% 前回投票率 58.1% " +
	"定数/候補者数 18/21 有権者数 210,332人 男性 101,554人 女性 108,778人 前回より -3,210人"

// TestExtractText_Scenario verifies the full nine-field record for a typical
// flattened page.
func TestExtractText_Scenario(t *testing.T) {
	t.Parallel()

	rec := Default().ExtractText(scenarioCorpus)

	want := map[string]string{
		FieldVoteDate:         "2023年04月09日",
		FieldAnnouncementDate: "2023年03月26日",
		FieldTurnoutRate:      "54.3%",
		FieldPrevTurnoutRate:  "58.1%",
		FieldSeatsCandidates:  "18/21",
		FieldTotalVoters:      "210,332",
		FieldMaleVoters:       "101,554",
		FieldFemaleVoters:     "108,778",
		FieldChange:           "-3,210",
	}

	if len(rec.Fields) != 9 {
		t.Fatalf("expected 9 fields, got %d", len(rec.Fields))
	}
	for name, v := range want {
		got, ok := rec.Get(name)
		if !ok {
			t.Fatalf("field %s not found", name)
		}
		if got != v {
			t.Fatalf("field %s: expected %q, got %q", name, v, got)
		}
	}
}

// TestExtract_FlattensRows verifies that cells spread over rows and columns
// are found the same way as in a pre-flattened corpus.
func TestExtract_FlattensRows(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"投票日", "2023年04月09日", "告示日", "2023年03月26日"},
		{"投票率", "54.3%", "前回投票率", "58.1%"},
		{"定数/候補者数", "18/21"},
		{"有権者数", "210,332人", "男性", "101,554人", "女性", "108,778人"},
		{"前回より", "-3,210人"},
	}

	got := Default().Extract(rows)
	want := Default().ExtractText(scenarioCorpus)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records differ:\n got=%#v\nwant=%#v", got, want)
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{name: "nil", rows: nil, want: ""},
		{name: "single", rows: [][]string{{"a"}}, want: "a"},
		{name: "row_major", rows: [][]string{{"a", "b"}, {"c"}}, want: "a b c"},
		{name: "empty_cells_kept", rows: [][]string{{"a", ""}, {"", "b"}}, want: "a   b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Flatten(tc.rows); got != tc.want {
				t.Fatalf("Flatten=%q, want %q", got, tc.want)
			}
		})
	}
}

// TestExtractText_LabelDisambiguation verifies that 投票率 never captures
// the value that belongs to 前回投票率, whichever comes first.
func TestExtractText_LabelDisambiguation(t *testing.T) {
	t.Parallel()

	corpora := []string{
		"前回投票率,58.2% 投票率,62.5%",
		"投票率,62.5% 前回投票率,58.2%",
		"前回投票率 58.2% ほか 投票率 62.5%",
	}
	for _, c := range corpora {
		rec := Default().ExtractText(c)
		if v, _ := rec.Get(FieldTurnoutRate); v != "62.5%" {
			t.Fatalf("%q: turnout=%q, want 62.5%%", c, v)
		}
		if v, _ := rec.Get(FieldPrevTurnoutRate); v != "58.2%" {
			t.Fatalf("%q: previous turnout=%q, want 58.2%%", c, v)
		}
	}
}

// TestExtractText_OnlyPreviousTurnout verifies the shorter label does not
// fall back to the longer one's value when it is absent.
func TestExtractText_OnlyPreviousTurnout(t *testing.T) {
	t.Parallel()

	rec := Default().ExtractText("前回投票率 58.2%")
	if v, ok := rec.Get(FieldTurnoutRate); ok {
		t.Fatalf("turnout should be missing, got %q", v)
	}
	if v, _ := rec.Get(FieldPrevTurnoutRate); v != "58.2%" {
		t.Fatalf("previous turnout=%q", v)
	}
}

func TestExtractText_ValueShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		corpus string
		field  string
		want   string
	}{
		{name: "ratio_spaces_removed", corpus: "定数/候補者数, 20 / 25", field: FieldSeatsCandidates, want: "20/25"},
		{name: "thousands_kept_quotes_dropped", corpus: `有権者数,"123,456"人`, field: FieldTotalVoters, want: "123,456"},
		{name: "signed_negative", corpus: "前回より,-1,204人", field: FieldChange, want: "-1,204"},
		{name: "signed_positive", corpus: "前回より +88人", field: FieldChange, want: "+88"},
		{name: "unsigned_change", corpus: "前回より 1,000人", field: FieldChange, want: "1,000"},
		{name: "single_digit_month", corpus: "投票日：2019年4月7日", field: FieldVoteDate, want: "2019年4月7日"},
		{name: "integer_percent", corpus: "投票率 50%", field: FieldTurnoutRate, want: "50%"},
		{name: "full_width_digits", corpus: "投票率　５４．３％", field: FieldTurnoutRate, want: "54.3%"},
		{name: "full_width_ratio", corpus: "定数／候補者数　１８／２１", field: FieldSeatsCandidates, want: "18/21"},
		{name: "minus_sign_variant", corpus: "前回より −3,210人", field: FieldChange, want: "-3,210"},
		{name: "ideographic_comma", corpus: "男性、101,554人", field: FieldMaleVoters, want: "101,554"},
		{name: "no_break_space_separator", corpus: "投票日\u00a02023年04月09日", field: FieldVoteDate, want: "2023年04月09日"},
		{name: "no_break_space_count", corpus: "有権者数\u00a0210,332人", field: FieldTotalVoters, want: "210,332"},
		{name: "thin_space_ratio", corpus: "定数/候補者数 18\u2009/\u202f21", field: FieldSeatsCandidates, want: "18/21"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := Default().ExtractText(tc.corpus)
			got, ok := rec.Get(tc.field)
			if !ok {
				t.Fatalf("field %s not found in %q", tc.field, tc.corpus)
			}
			if got != tc.want {
				t.Fatalf("field %s=%q, want %q", tc.field, got, tc.want)
			}
		})
	}
}

// TestExtractText_MalformedValueIsMissing documents that a label whose value
// has an unexpected form is reported the same as an absent label.
func TestExtractText_MalformedValueIsMissing(t *testing.T) {
	t.Parallel()

	rec := Default().ExtractText("投票日 令和5年4月9日 有権者数 不明")
	for _, name := range []string{FieldVoteDate, FieldTotalVoters} {
		if v, ok := rec.Get(name); ok {
			t.Fatalf("%s should be missing, got %q", name, v)
		}
	}
}

// TestExtract_Totality verifies every input yields exactly the rule set's
// fields, each empty or found.
func TestExtract_Totality(t *testing.T) {
	t.Parallel()

	inputs := [][][]string{
		nil,
		{},
		{{}},
		{{"", ""}},
		{{"nan", "関係のない文字列"}, {"12345", "%%%"}},
		{{"投票日"}, {"投票率"}, {"人"}},
	}
	for _, rows := range inputs {
		rec := Default().Extract(rows)
		if len(rec.Fields) != 9 {
			t.Fatalf("rows=%v: expected 9 fields, got %d", rows, len(rec.Fields))
		}
		for _, f := range rec.Fields {
			if f.Found || f.Value != "" {
				t.Fatalf("rows=%v: unexpected match %#v", rows, f)
			}
		}
		if got := rec.Values(); !reflect.DeepEqual(got, make([]string, 9)) {
			t.Fatalf("values=%#v", got)
		}
	}
}

func TestExtractText_Idempotent(t *testing.T) {
	t.Parallel()

	a := Default().ExtractText(scenarioCorpus)
	b := Default().ExtractText(scenarioCorpus)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ: %#v vs %#v", a, b)
	}
	if strings.Join(a.Values(), ",") != strings.Join(b.Values(), ",") {
		t.Fatalf("values differ")
	}
}

// TestExtractText_FirstMatchWins verifies repeated labels resolve to the
// earliest occurrence.
func TestExtractText_FirstMatchWins(t *testing.T) {
	t.Parallel()

	rec := Default().ExtractText("男性 1,000人 男性 2,000人")
	if v, _ := rec.Get(FieldMaleVoters); v != "1,000" {
		t.Fatalf("male=%q, want 1,000", v)
	}
}

func TestRecord_FoundVersusEmpty(t *testing.T) {
	t.Parallel()

	rec := Record{Fields: []Field{
		{Name: "a", Value: "", Found: true},
		{Name: "b", Value: "", Found: false},
	}}
	if _, ok := rec.Get("a"); !ok {
		t.Fatalf("a should be found")
	}
	if _, ok := rec.Get("b"); ok {
		t.Fatalf("b should be missing")
	}
	if got := rec.Missing(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Missing=%v", got)
	}
	if got := rec.Header(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Header=%v", got)
	}
}

func TestWithWidthFold_Disabled(t *testing.T) {
	t.Parallel()

	e, err := New(DefaultRules(), WithWidthFold(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := e.ExtractText("投票率 ５４．３％")
	if v, ok := rec.Get(FieldTurnoutRate); ok {
		t.Fatalf("expected no match without folding, got %q", v)
	}
}

// TestExtract_NoBreakSpaceCells covers cells scraped from pages that use
// &nbsp; between label and value, with and without width folding.
func TestExtract_NoBreakSpaceCells(t *testing.T) {
	t.Parallel()

	rows := [][]string{{"投票日\u00a02023年04月09日", "有権者数\u00a0210,332人", "定数/候補者数\u00a018\u00a0/\u00a021"}}
	for _, fold := range []bool{true, false} {
		e, err := New(DefaultRules(), WithWidthFold(fold))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rec := e.Extract(rows)
		want := map[string]string{
			FieldVoteDate:        "2023年04月09日",
			FieldTotalVoters:     "210,332",
			FieldSeatsCandidates: "18/21",
		}
		for name, v := range want {
			if got, ok := rec.Get(name); !ok || got != v {
				t.Fatalf("fold=%v %s=%q (found=%v), want %q", fold, name, got, ok, v)
			}
		}
	}
}

// TestNew_FullWidthLabel verifies that a label written with full-width
// characters matches the folded corpus, and that label disambiguation still
// works on the folded form.
func TestNew_FullWidthLabel(t *testing.T) {
	t.Parallel()

	e, err := New([]Rule{{Field: FieldSeatsCandidates, Label: "定数／候補者数", Shape: ShapeRatio}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v, _ := e.ExtractText("定数／候補者数 18/21").Get(FieldSeatsCandidates); v != "18/21" {
		t.Fatalf("定数/候補者数=%q, want 18/21", v)
	}
	if got := e.Rules()[0].Label; got != "定数／候補者数" {
		t.Fatalf("Rules() label=%q, want the label as written", got)
	}

	e, err = New([]Rule{
		{Field: "turnout", Label: "投票率", Shape: ShapePercent},
		{Field: "prev", Label: "前回投票率", Shape: ShapePercent},
		{Field: "extra", Label: "ＸＹ投票率", Shape: ShapePercent},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := e.ExtractText("XY投票率 1% 投票率 2%")
	if v, _ := rec.Get("extra"); v != "1%" {
		t.Fatalf("extra=%q, want 1%%", v)
	}
	if v, _ := rec.Get("turnout"); v != "2%" {
		t.Fatalf("turnout=%q, want 2%%", v)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules []Rule
		want  string
	}{
		{name: "empty", rules: nil, want: "no rules"},
		{name: "empty_field", rules: []Rule{{Label: "x", Shape: ShapeDate}}, want: "empty field"},
		{name: "duplicate", rules: []Rule{{Field: "a", Shape: ShapeDate}, {Field: "a", Shape: ShapeCount}}, want: "duplicate field"},
		{name: "unknown_shape", rules: []Rule{{Field: "a", Shape: "money"}}, want: "unknown shape"},
		{name: "bad_pattern", rules: []Rule{{Field: "a", Pattern: "(["}}, want: `field="a"`},
		{name: "text_without_pattern", rules: []Rule{{Field: "a", Shape: ShapeText}}, want: "requires a pattern"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.rules)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

// TestNew_CustomRule verifies an extra text rule and that its label defaults
// to the field name.
func TestNew_CustomRule(t *testing.T) {
	t.Parallel()

	rules := append(DefaultRules(), Rule{Field: "選挙名", Pattern: `\S+選挙`})
	e, err := New(rules)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := e.ExtractText("選挙名 堺市長選挙 投票率 40.1%")
	if len(rec.Fields) != 10 {
		t.Fatalf("expected 10 fields, got %d", len(rec.Fields))
	}
	if v, _ := rec.Get("選挙名"); v != "堺市長選挙" {
		t.Fatalf("選挙名=%q", v)
	}
	if got := e.Rules()[9].Shape; got != ShapeText {
		t.Fatalf("shape=%q, want text", got)
	}
}
