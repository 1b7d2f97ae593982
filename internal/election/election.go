// Package election converts cleaned records into typed values for charts
// and summaries.
package election

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"

	"senkyo/internal/extract"
)

const dateLayout = "2006年1月2日"

var reYear = regexp.MustCompile(`\d{4}`)

// Result is the typed view of one cleaned record. Values that are missing
// or cannot be parsed are left invalid.
type Result struct {
	VoteDate         sql.NullTime
	AnnouncementDate sql.NullTime
	Year             sql.NullInt64

	TurnoutRate         sql.NullFloat64 // percent, 54.3 for "54.3%"
	PreviousTurnoutRate sql.NullFloat64

	Seats          sql.NullInt64
	Candidates     sql.NullInt64
	CandidateRatio sql.NullFloat64 // seats / candidates

	TotalVoters  sql.NullInt64
	MaleVoters   sql.NullInt64
	FemaleVoters sql.NullInt64
	Change       sql.NullInt64
}

// Parse builds the typed view of rec.
func Parse(rec extract.Record) Result {
	get := func(name string) string {
		v, _ := rec.Get(name)
		return strings.TrimSpace(v)
	}

	var r Result
	r.VoteDate = parseDate(get(extract.FieldVoteDate))
	r.AnnouncementDate = parseDate(get(extract.FieldAnnouncementDate))

	switch {
	case r.VoteDate.Valid:
		r.Year = sql.NullInt64{Int64: int64(r.VoteDate.Time.Year()), Valid: true}
	default:
		if y := reYear.FindString(get(extract.FieldVoteDate)); y != "" {
			n, _ := strconv.Atoi(y)
			r.Year = sql.NullInt64{Int64: int64(n), Valid: true}
		}
	}

	r.TurnoutRate = parsePercent(get(extract.FieldTurnoutRate))
	r.PreviousTurnoutRate = parsePercent(get(extract.FieldPrevTurnoutRate))

	if seats, cands, ok := strings.Cut(get(extract.FieldSeatsCandidates), "/"); ok {
		r.Seats = parseCount(seats)
		r.Candidates = parseCount(cands)
		if r.Seats.Valid && r.Candidates.Valid && r.Candidates.Int64 > 0 {
			r.CandidateRatio = sql.NullFloat64{
				Float64: float64(r.Seats.Int64) / float64(r.Candidates.Int64),
				Valid:   true,
			}
		}
	}

	r.TotalVoters = parseCount(get(extract.FieldTotalVoters))
	r.MaleVoters = parseCount(get(extract.FieldMaleVoters))
	r.FemaleVoters = parseCount(get(extract.FieldFemaleVoters))
	r.Change = parseCount(get(extract.FieldChange))
	return r
}

func parseDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func parsePercent(s string) sql.NullFloat64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func parseCount(s string) sql.NullInt64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSuffix(s, "人")
	if s == "" {
		return sql.NullInt64{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
