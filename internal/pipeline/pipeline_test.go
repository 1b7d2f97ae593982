package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senkyo/internal/extract"
	"senkyo/internal/htmltable"
	"senkyo/internal/output"
	"senkyo/internal/storage"
	_ "senkyo/internal/storage/sqlite"
	"senkyo/internal/table"
)

const rawTable = `選挙結果,値
投票日,2023年4月9日
告示日,2023年3月26日
投票率,54.3%
前回投票率,58.1%
定数/候補者数,18 / 21
"有権者数,""210,332""人"
男性,"101,554人"
女性,"108,778人"
前回より,"-3,210人"
`

func writeRaw(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, runID, localPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	k := runID + "/" + filepath.Base(localPath)
	f.keys = append(f.keys, k)
	return k, nil
}

func TestClean_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := writeRaw(t, dir, "ski_b_2023.csv", rawTable)

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.EnsureSchema(context.Background()))

	up := &fakeUploader{}
	c := &Cleaner{
		Read:     table.ReadOptions{TrimSpace: true},
		XLSX:     true,
		Repo:     repo,
		Uploader: up,
		NewRunID: func() string { return "run-1" },
	}

	res, err := c.Clean(context.Background(), in, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ski_b_2023_cleaned.csv"), res.Output)
	assert.Equal(t, filepath.Join(dir, "ski_b_2023_cleaned.xlsx"), res.XLSXPath)
	assert.Equal(t, []string{
		"2023年4月9日", "2023年3月26日", "54.3%", "58.1%", "18/21",
		"210,332", "101,554", "108,778", "-3,210",
	}, res.Record.Values())
	require.NotNil(t, res.Stored)
	assert.Equal(t, storage.Result{Inserted: 1}, *res.Stored)
	assert.Equal(t, []string{"run-1/ski_b_2023_cleaned.csv", "run-1/ski_b_2023_cleaned.xlsx"}, up.keys)

	recs, err := output.ReadFile(res.Output)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.Record.Values(), recs[0].Values())

	again, err := c.Clean(context.Background(), in, "")
	require.NoError(t, err)
	assert.Equal(t, storage.Result{Unchanged: 1}, *again.Stored)
}

func TestClean_ExplicitOutputAndMissingFields(t *testing.T) {
	dir := t.TempDir()
	in := writeRaw(t, dir, "notes.csv", "自由記述,特になし\n")
	out := filepath.Join(dir, "sub", "result.csv")

	res, err := (&Cleaner{}).Clean(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, out, res.Output)
	assert.Len(t, res.Record.Missing(), 9)
	assert.Empty(t, res.XLSXPath)
	assert.NotEmpty(t, res.RunID)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(b), ",,,,,,,,\n"))
}

func TestClean_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&Cleaner{}).Clean(context.Background(), filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)

	in := writeRaw(t, dir, "ski_2023.csv", rawTable)
	_, err = (&Cleaner{Uploader: &fakeUploader{err: errors.New("denied")}}).Clean(context.Background(), in, "")
	assert.ErrorContains(t, err, "denied")
	_, statErr := os.Stat(filepath.Join(dir, "ski_2023_cleaned.csv"))
	assert.NoError(t, statErr, "csv is written before upload")
}

func TestClean_CustomRules(t *testing.T) {
	dir := t.TempDir()
	in := writeRaw(t, dir, "x_2023.csv", "執行日,2023年4月9日\n")

	rules := extract.DefaultRules()
	rules[0].Label = "執行日"
	ex, err := extract.New(rules)
	require.NoError(t, err)

	res, err := (&Cleaner{Extractor: ex}).Clean(context.Background(), in, "")
	require.NoError(t, err)
	v, ok := res.Record.Get(extract.FieldVoteDate)
	assert.True(t, ok)
	assert.Equal(t, "2023年4月9日", v)
}

func TestClean_ExtraFieldsNotStoredAreReported(t *testing.T) {
	dir := t.TempDir()
	in := writeRaw(t, dir, "ski_b_2023.csv", rawTable+"当日有権者数,\"200,000人\"\n")

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.EnsureSchema(context.Background()))

	ex, err := extract.New(append(extract.DefaultRules(), extract.Rule{Field: "当日有権者数", Shape: extract.ShapeCount}))
	require.NoError(t, err)

	var logs bytes.Buffer
	c := &Cleaner{Extractor: ex, Repo: repo, Logger: log.New(&logs, "", 0)}
	res, err := c.Clean(context.Background(), in, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"当日有権者数"}, res.Unstored)
	assert.Contains(t, logs.String(), "fields not stored (no column): 当日有権者数")
	require.NotNil(t, res.Stored)
	assert.Equal(t, 1, res.Stored.Inserted)
	v, _ := res.Record.Get("当日有権者数")
	assert.Equal(t, "200,000", v)
}

func TestSourceKey(t *testing.T) {
	assert.Equal(t, "ski_2023", SourceKey("data/ski_2023.csv"))
	assert.Equal(t, "ski_2023", SourceKey("ski_2023"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<table><tr><th>投票率</th><td>54.3%</td></tr></table>
<table><tr><td>other</td></tr></table>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := &Fetcher{Loader: htmltable.NewLoader(srv.Client(), 0), DataDir: dir}

	res, err := f.Fetch(context.Background(), srv.URL, "ski_2023", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ski_2023.csv"), res.Path)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, "ski", res.Dataset.Code)

	rows, err := table.ReadFile(res.Path, table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"投票率", "54.3%"}}, rows)

	res, err = f.Fetch(context.Background(), srv.URL, "zzz_b_2019", 1, nil)
	require.NoError(t, err, "unknown code is only a warning")
	assert.Equal(t, filepath.Join(dir, "zzz_b_2019.csv"), res.Path)

	_, err = f.Fetch(context.Background(), srv.URL, "ski_2023", 5, nil)
	assert.ErrorContains(t, err, "out of range")
}

func TestFetch_InvalidName(t *testing.T) {
	f := &Fetcher{DataDir: t.TempDir()}
	for _, name := range []string{"", "ski", "../etc_2023", "SKI_2023", "ski_c_2023"} {
		_, err := f.Fetch(context.Background(), "-", name, 0, strings.NewReader("<table></table>"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestFetch_Stdin(t *testing.T) {
	dir := t.TempDir()
	f := &Fetcher{DataDir: dir}
	res, err := f.Fetch(context.Background(), "-", "oosk_a_2019", 0, strings.NewReader("<table><tr><td>告示日</td><td>2019年3月24日</td></tr></table>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "oosk_a_2019.csv"), res.Path)
}

func writeCleaned(t *testing.T, dir, name, corpus string) {
	t.Helper()
	rec := extract.Default().ExtractText(corpus)
	require.NoError(t, output.WriteFile(filepath.Join(dir, name), rec))
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	writeCleaned(t, dir, "ski_2023_cleaned.csv", "投票日 2023年4月9日 投票率 54.3%")
	writeCleaned(t, dir, "ski_a_2019_cleaned.csv", "投票日 2019年4月7日 投票率 50.1%")
	writeCleaned(t, dir, "ski_b_2019_cleaned.csv", "投票日 2019年4月7日 投票率 48.0%")
	writeCleaned(t, dir, "ski_a_2015_cleaned.csv", "投票率 40.0%")
	writeCleaned(t, dir, "readme_cleaned.csv", "投票率 1%")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ski_2011.csv"), []byte("raw"), 0o644))

	outDir := filepath.Join(dir, "merged")
	groups, err := (&Merger{OutDir: outDir}).Merge(dir)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "ski_a", groups[0].Key)
	assert.Equal(t, []string{"ski_a_2019_cleaned.csv", "ski_2023_cleaned.csv", "ski_a_2015_cleaned.csv"}, groups[0].Sources)
	assert.Equal(t, filepath.Join(outDir, "ski_a_merged.csv"), groups[0].Path)
	assert.Equal(t, "ski_b", groups[1].Key)

	rows, err := Summarize(groups[0].Path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ski_a_2019_cleaned.csv", rows[0].Source)
	assert.Equal(t, int64(2019), rows[0].Year.Int64)
	assert.InDelta(t, 54.3, rows[1].TurnoutRate.Float64, 1e-9)
	assert.False(t, rows[2].VoteDate.Valid)
}

func TestMerge_NoFiles(t *testing.T) {
	_, err := (&Merger{}).Merge(t.TempDir())
	assert.ErrorContains(t, err, "no cleaned files")
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "ski_2023_cleaned.csv")
	writeCleaned(t, dir, "ski_2023_cleaned.csv", "投票日 2023年4月9日 投票率 54.3% 定数/候補者数 18/21 有権者数 210,332人")

	rows, err := Summarize(p)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, p, rows[0].Source)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "source"))
	for _, want := range []string{"2023-04-09", "54.30", "18/21", "0.857", "210332"} {
		assert.Contains(t, lines[1], want)
	}
	assert.Contains(t, lines[1], "-", "missing values print as -")
}
