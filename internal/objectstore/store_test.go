package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, run, path, want string
	}{
		{"", "run-1", "data/ski_2023_cleaned.csv", "run-1/ski_2023_cleaned.csv"},
		{"senkyo/", "run-1", "/tmp/out/ski_2023_cleaned.xlsx", "senkyo/run-1/ski_2023_cleaned.xlsx"},
		{"/a/b/", "r", "x.csv", "a/b/r/x.csv"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ObjectKey(tc.prefix, tc.run, tc.path))
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text/csv; charset=utf-8", ContentType("a.CSV"))
	assert.True(t, strings.HasPrefix(ContentType("a.xlsx"), "application/vnd.openxmlformats"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	base := Config{Endpoint: "localhost:9000", Bucket: "senkyo", AccessKey: "a", SecretKey: "s"}

	s, err := New(base)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)

	for name, mutate := range map[string]func(*Config){
		"endpoint": func(c *Config) { c.Endpoint = " " },
		"bucket":   func(c *Config) { c.Bucket = "" },
		"secret":   func(c *Config) { c.SecretKey = "" },
	} {
		c := base
		mutate(&c)
		_, err := New(c)
		assert.Error(t, err, name)
	}
}

func TestUpload_RequiresRunAndPath(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Endpoint: "localhost:9000", Bucket: "senkyo", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "", "x.csv")
	assert.ErrorContains(t, err, "run id")
	_, err = s.Upload(context.Background(), "run", " ")
	assert.ErrorContains(t, err, "path")
}
