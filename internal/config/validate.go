package config

import (
	"strings"
	"unicode/utf8"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one configuration problem.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks c for invalid or suspicious settings.
func Validate(c Config) []Issue {
	var out []Issue
	add := func(sev Severity, path, msg string) {
		out = append(out, Issue{Severity: sev, Path: path, Message: msg})
	}

	switch strings.ToLower(c.Input.Encoding) {
	case "", "auto", "utf-8", "utf8", "shift_jis", "sjis", "cp932":
	default:
		add(SeverityError, "input.encoding", "must be auto, utf-8 or shift_jis")
	}
	if c.Input.Comma != `\t` && utf8.RuneCountInString(c.Input.Comma) > 1 {
		add(SeverityError, "input.comma", "must be a single character")
	}

	if c.Output.Suffix == "" {
		add(SeverityWarning, "output.suffix", "empty; the default _cleaned is used")
	}

	if c.Fetch.Timeout <= 0 {
		add(SeverityError, "fetch.timeout", "must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		add(SeverityError, "fetch.max_retries", "must not be negative")
	}

	switch c.Storage.Kind {
	case "":
		if c.Storage.DSN != "" {
			add(SeverityWarning, "storage.dsn", "set without storage.kind; records are not stored")
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			add(SeverityError, "storage.dsn", "required when storage.kind is set")
		}
	default:
		add(SeverityError, "storage.kind", "must be sqlite, postgres or mssql")
	}

	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics.backend", "must be none or datadog")
	}

	obj := c.ObjectStore
	if (obj.Endpoint == "") != (obj.Bucket == "") {
		add(SeverityError, "object_store", "endpoint and bucket must be set together")
	}
	if obj.Enabled() && (obj.AccessKey == "" || obj.SecretKey == "") {
		add(SeverityWarning, "object_store", "no credentials; anonymous access is used")
	}

	return out
}
