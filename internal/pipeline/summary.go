package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"senkyo/internal/election"
	"senkyo/internal/output"
)

// SummaryRow is the typed view of one cleaned or merged row.
type SummaryRow struct {
	Source string
	election.Result
}

// Summarize reads a cleaned or merged file into typed rows. Source is the
// row's source_file column when present, otherwise path.
func Summarize(path string) ([]SummaryRow, error) {
	recs, err := output.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]SummaryRow, 0, len(recs))
	for _, rec := range recs {
		src := path
		if v, ok := rec.Get(SourceFileColumn); ok {
			src = v
		}
		out = append(out, SummaryRow{Source: src, Result: election.Parse(rec)})
	}
	return out, nil
}

// WriteSummary renders rows as an aligned table. Invalid values print as "-".
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tyear\tvote_date\tturnout\tprev_turnout\tseats/cands\tratio\tvoters\tmale\tfemale\tchange")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s/%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Source,
			intOr(r.Year.Valid, r.Year.Int64),
			dateOr(r.Result),
			floatOr(r.TurnoutRate.Valid, r.TurnoutRate.Float64, 2),
			floatOr(r.PreviousTurnoutRate.Valid, r.PreviousTurnoutRate.Float64, 2),
			intOr(r.Seats.Valid, r.Seats.Int64),
			intOr(r.Candidates.Valid, r.Candidates.Int64),
			floatOr(r.CandidateRatio.Valid, r.CandidateRatio.Float64, 3),
			intOr(r.TotalVoters.Valid, r.TotalVoters.Int64),
			intOr(r.MaleVoters.Valid, r.MaleVoters.Int64),
			intOr(r.FemaleVoters.Valid, r.FemaleVoters.Int64),
			intOr(r.Change.Valid, r.Change.Int64),
		)
	}
	return tw.Flush()
}

func intOr(ok bool, v int64) string {
	if !ok {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func floatOr(ok bool, v float64, prec int) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func dateOr(r election.Result) string {
	if !r.VoteDate.Valid {
		return "-"
	}
	return r.VoteDate.Time.Format("2006-01-02")
}
