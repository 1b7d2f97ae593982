package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senkyo/internal/extract"
)

func TestParse_Scenario(t *testing.T) {
	rec := extract.Default().ExtractText("投票日 2023年04月09日 告示日 2023年03月26日 投票率 54.3% 前回投票率 58.1% " +
		"定数/候補者数 18/21 有権者数 210,332人 男性 101,554人 女性 108,778人 前回より -3,210人")

	r := Parse(rec)

	require.True(t, r.VoteDate.Valid)
	assert.Equal(t, time.Date(2023, 4, 9, 0, 0, 0, 0, time.UTC), r.VoteDate.Time)
	assert.Equal(t, time.Date(2023, 3, 26, 0, 0, 0, 0, time.UTC), r.AnnouncementDate.Time)
	assert.Equal(t, int64(2023), r.Year.Int64)
	assert.InDelta(t, 54.3, r.TurnoutRate.Float64, 1e-9)
	assert.InDelta(t, 58.1, r.PreviousTurnoutRate.Float64, 1e-9)
	assert.Equal(t, int64(18), r.Seats.Int64)
	assert.Equal(t, int64(21), r.Candidates.Int64)
	assert.InDelta(t, 18.0/21.0, r.CandidateRatio.Float64, 1e-9)
	assert.Equal(t, int64(210332), r.TotalVoters.Int64)
	assert.Equal(t, int64(101554), r.MaleVoters.Int64)
	assert.Equal(t, int64(108778), r.FemaleVoters.Int64)
	assert.Equal(t, int64(-3210), r.Change.Int64)
}

func TestParse_MissingAndMalformed(t *testing.T) {
	rec := extract.Record{Fields: []extract.Field{
		{Name: extract.FieldVoteDate, Value: "2019年 4月", Found: true},
		{Name: extract.FieldTurnoutRate, Value: "abc%", Found: true},
		{Name: extract.FieldSeatsCandidates, Value: "5/0", Found: true},
		{Name: extract.FieldChange, Value: "+12", Found: true},
	}}

	r := Parse(rec)

	assert.False(t, r.VoteDate.Valid)
	require.True(t, r.Year.Valid, "year falls back to the first four digits")
	assert.Equal(t, int64(2019), r.Year.Int64)
	assert.False(t, r.TurnoutRate.Valid)
	assert.True(t, r.Seats.Valid)
	assert.True(t, r.Candidates.Valid)
	assert.False(t, r.CandidateRatio.Valid, "no ratio for zero candidates")
	assert.False(t, r.TotalVoters.Valid)
	assert.Equal(t, int64(12), r.Change.Int64)
	assert.False(t, r.AnnouncementDate.Valid)
}
