package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/nevindra/kitabi"
	"github.com/nevindra/kitabi/ingest/pdf"
	"github.com/nevindra/kitabi/internal/config"
	"github.com/nevindra/kitabi/observer"
	"github.com/nevindra/kitabi/provider/azure"
	"github.com/nevindra/kitabi/provider/lingua"
	"github.com/nevindra/kitabi/store/postgres"
	"github.com/nevindra/kitabi/store/sqlite"
)

// env is the per-invocation runtime built from config and global flags.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	inst   *observer.Instruments // nil unless the observer is enabled

	closers []func(context.Context) error
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("threshold") {
		cfg.Pipeline.ScannedCharsPerPage = c.Float64("threshold")
	}
	e := &env{cfg: cfg, logger: newLogger(c.App.ErrWriter, c.String("log-format"), c.Bool("verbose"), c.Bool("quiet"))}

	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.PagePricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.PagePricing{PerThousandPages: p.PerThousandPages}
		}
		inst, shutdown, err := observer.Init(c.Context, pricing)
		if err != nil {
			return nil, fmt.Errorf("observer: %w", err)
		}
		e.inst = inst
		e.closers = append(e.closers, shutdown)
	}
	return e, nil
}

func newLogger(w io.Writer, format string, verbose, quiet bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// close runs the registered closers in reverse order.
func (e *env) close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// pipeline wires the local reader, the language model and, when configured,
// the cloud service with retry and instrumentation.
func (e *env) pipeline() (*kitabi.Pipeline, error) {
	var modelOpts []lingua.Option
	if len(e.cfg.Lingua.Languages) > 0 {
		modelOpts = append(modelOpts, lingua.WithLanguages(e.cfg.Lingua.Languages...))
	}
	if e.cfg.Lingua.LowAccuracy {
		modelOpts = append(modelOpts, lingua.WithLowAccuracyMode())
	}
	model, err := lingua.New(modelOpts...)
	if err != nil {
		return nil, err
	}

	opts := []kitabi.Option{kitabi.WithConfig(e.cfg.Pipeline), kitabi.WithLogger(e.logger)}
	if e.inst != nil {
		opts = append(opts, kitabi.WithTracer(observer.NewTracer()))
	}
	cloud, err := e.cloud()
	if err != nil {
		return nil, err
	}
	if cloud != nil {
		opts = append(opts, kitabi.WithCloud(cloud))
	} else {
		e.logger.Debug("no cloud service configured; Arabic documents will fail extraction")
	}
	return kitabi.New(pdf.NewReader(), model, opts...)
}

func (e *env) cloud() (kitabi.CloudAnalyzer, error) {
	az := e.cfg.Azure
	if !az.Enabled() {
		return nil, nil
	}
	clientOpts := []azure.Option{
		azure.WithModel(az.Model),
		azure.WithAPIVersion(az.APIVersion),
		azure.WithPollInterval(az.PollInterval),
		azure.WithTimeout(az.Timeout),
		azure.WithLogger(e.logger),
	}
	if e.inst != nil {
		clientOpts = append(clientOpts, azure.WithHTTPClient(observer.HTTPClient()))
	}
	client, err := azure.New(az.Endpoint, az.Key, clientOpts...)
	if err != nil {
		return nil, err
	}

	var cloud kitabi.CloudAnalyzer = client
	if e.inst != nil {
		cloud = observer.WrapAnalyzer(cloud, az.Model, e.inst)
	}
	cloud = kitabi.WithRetry(cloud,
		kitabi.RetryMaxAttempts(e.cfg.Retry.MaxAttempts),
		kitabi.RetryBaseDelay(e.cfg.Retry.BaseDelay),
		kitabi.RetryLogger(e.logger),
	)
	if az.RequestsPerMinute > 0 || az.PagesPerMinute > 0 {
		cloud = kitabi.WithRateLimit(cloud, kitabi.RPM(az.RequestsPerMinute), kitabi.PPM(az.PagesPerMinute))
	}
	return cloud, nil
}

// store opens and initializes the configured record store.
func (e *env) store(ctx context.Context) (kitabi.Store, error) {
	var s kitabi.Store
	if url := e.cfg.Database.URL; url != "" {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		e.closers = append(e.closers, func(context.Context) error { pool.Close(); return nil })
		s = postgres.New(pool)
	} else {
		s = sqlite.New(e.cfg.Database.Path, sqlite.WithLogger(e.logger))
	}
	e.closers = append(e.closers, func(context.Context) error { return s.Close() })
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return s, nil
}
