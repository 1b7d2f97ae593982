package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"senkyo/internal/config"
	"senkyo/internal/extract"
	"senkyo/internal/metrics"
	"senkyo/internal/metrics/datadog"
	"senkyo/internal/objectstore"
	"senkyo/internal/storage"

	// register all backends with the storage factory
	_ "senkyo/internal/storage/all"
)

// app carries the streams and per-run resources shared by the commands.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	cfgPath string
	verbose bool

	cfg    config.Config
	logger *log.Logger

	closers []func()
}

// binding maps a command flag onto a config key.
type binding struct {
	flag string
	key  string
}

// setup loads configuration with the command's flag bindings applied,
// validates it and installs the metrics backend. Config problems are usage
// errors.
func (a *app) setup(cmd *cobra.Command, binds ...binding) error {
	v, err := config.New(a.cfgPath)
	if err != nil {
		return usageError{err: err}
	}
	for _, b := range binds {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			return fmt.Errorf("internal: no flag %q", b.flag)
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("bind %s: %w", b.flag, err)
		}
	}
	if f := cmd.Flags().Lookup("no-fold"); f != nil && f.Changed {
		v.Set("extract.fold_width", false)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return usageError{err: err}
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(a.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return usagef("configuration is invalid")
	}
	a.cfg = cfg

	out := io.Discard
	if a.verbose {
		out = a.stderr
	}
	a.logger = log.New(out, "senkyo: ", log.LstdFlags)
	if a.verbose {
		logConfig(a.logger, v)
	}

	return a.setupMetrics(cmd.Context())
}

func logConfig(l *log.Logger, v *viper.Viper) {
	if f := v.ConfigFileUsed(); f != "" {
		l.Printf("config file: %s", f)
	}
}

func (a *app) setupMetrics(ctx context.Context) error {
	m := a.cfg.Metrics
	switch m.Backend {
	case "", "none":
		return nil
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    m.JobName,
			Tags:       datadog.ParseTagsCSV(m.Tags),
			FlushEvery: m.FlushEvery,
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.logger.Printf("metrics: backend=datadog job=%s", m.JobName)
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.logger.Printf("metrics: flush error: %v", err)
			}
			metrics.SetBackend(nil)
		})
		return nil
	default:
		return usagef("unknown metrics backend %q", m.Backend)
	}
}

// extractor builds the extractor from the configured rule file and width
// folding. Rule file problems are usage errors.
func (a *app) extractor() (*extract.Extractor, error) {
	rules := extract.DefaultRules()
	if p := a.cfg.Extract.RulesFile; p != "" {
		rf, err := extract.LoadRuleFile(p)
		if err != nil {
			return nil, usageError{err: err}
		}
		rules = rf.Effective()
		a.logger.Printf("rules: %d from %s", len(rules), p)
	}
	ex, err := extract.New(rules, extract.WithWidthFold(a.cfg.Extract.FoldWidth))
	if err != nil {
		return nil, usageError{err: err}
	}
	return ex, nil
}

// repository opens the configured store, or returns nil when none is set.
func (a *app) repository(ctx context.Context) (storage.Repository, error) {
	sc := a.cfg.Storage
	if sc.Kind == "" {
		return nil, nil
	}
	repo, err := storage.New(ctx, storage.Config{Kind: sc.Kind, DSN: sc.DSN})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repo.Close)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.logger.Printf("storage: kind=%s", sc.Kind)
	return repo, nil
}

// uploader builds the object store client when uploads are requested.
func (a *app) uploader() (objectstore.Uploader, error) {
	oc := a.cfg.ObjectStore
	if !oc.Enabled() {
		return nil, usagef("--upload needs object_store.endpoint and object_store.bucket")
	}
	st, err := objectstore.New(objectstore.Config{
		Endpoint:  oc.Endpoint,
		Region:    oc.Region,
		AccessKey: oc.AccessKey,
		SecretKey: oc.SecretKey,
		Bucket:    oc.Bucket,
		Prefix:    oc.Prefix,
		UseSSL:    oc.UseSSL,
	})
	if err != nil {
		return nil, usageError{err: err}
	}
	return st, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
