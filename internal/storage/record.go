package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"senkyo/internal/extract"
	"senkyo/internal/municipality"
)

// Table names shared by every backend.
const (
	CurrentTable = "election_records"
	HistoryTable = "election_records_history"
)

// ValueColumns maps the canonical fields to their column names, in record order.
var ValueColumns = []struct {
	Field  string
	Column string
}{
	{extract.FieldVoteDate, "vote_date"},
	{extract.FieldAnnouncementDate, "announcement_date"},
	{extract.FieldTurnoutRate, "turnout_rate"},
	{extract.FieldPrevTurnoutRate, "previous_turnout_rate"},
	{extract.FieldSeatsCandidates, "seats_candidates"},
	{extract.FieldTotalVoters, "total_voters"},
	{extract.FieldMaleVoters, "male_voters"},
	{extract.FieldFemaleVoters, "female_voters"},
	{extract.FieldChange, "change_from_previous"},
}

// UnstoredFields returns the fields of rec that have no column, in record
// order. Extra rule-file fields land here.
func UnstoredFields(rec extract.Record) []string {
	known := make(map[string]bool, len(ValueColumns))
	for _, c := range ValueColumns {
		known[c.Field] = true
	}
	var out []string
	for _, f := range rec.Fields {
		if !known[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// StoredRecord is one cleaned record ready for persistence. Values holds one
// entry per ValueColumns element; nil means the field was not found.
type StoredRecord struct {
	SourceKey    string
	Municipality string
	VoteType     string
	Values       []*string
	RowHash      string
	RunID        string
}

// NewStoredRecord converts rec. sourceKey is normally the input file stem;
// when it parses as a dataset name the municipality and vote type are filled.
func NewStoredRecord(sourceKey string, rec extract.Record, runID string) StoredRecord {
	sr := StoredRecord{
		SourceKey: sourceKey,
		RunID:     runID,
		Values:    make([]*string, len(ValueColumns)),
	}
	if ds, err := municipality.ParseDataset(sourceKey); err == nil {
		sr.Municipality = ds.Code
		sr.VoteType = string(ds.VoteType)
	}
	for i, c := range ValueColumns {
		if v, ok := rec.Get(c.Field); ok {
			v := v
			sr.Values[i] = &v
		}
	}
	sr.RowHash = RowHash(sr)
	return sr
}

// RowHash is the hex sha256 over the business content of r: source key and
// values, with NULL distinct from the empty string. RunID does not
// participate, so re-running an unchanged file is a no-op.
func RowHash(r StoredRecord) string {
	var b strings.Builder
	b.WriteString(r.SourceKey)
	for _, v := range r.Values {
		b.WriteByte(0x1f)
		if v == nil {
			b.WriteString("\x00NULL")
			continue
		}
		b.WriteString(*v)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// args returns the column values in dataColumns order.
func (r StoredRecord) args() []any {
	out := make([]any, 0, len(dataColumns()))
	out = append(out, r.SourceKey, nullable(r.Municipality), nullable(r.VoteType))
	for _, v := range r.Values {
		if v == nil {
			out = append(out, nil)
		} else {
			out = append(out, *v)
		}
	}
	return append(out, r.RowHash, r.RunID)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
