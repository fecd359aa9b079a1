package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cognicore/concord/internal/corenlp"
	"github.com/cognicore/concord/internal/logging"
	"github.com/cognicore/concord/pkg/concord"
	"github.com/cognicore/concord/pkg/concord/config"
	"github.com/cognicore/concord/pkg/concord/store"
	"github.com/cognicore/concord/pkg/concord/store/memstore"
	"github.com/cognicore/concord/pkg/concord/store/sqlite"
)

// Globals are flags shared by every subcommand. Set flags override the
// config file and environment.
type Globals struct {
	Config    string `name:"config" short:"c" help:"YAML config file" type:"path"`
	EngineURL string `name:"engine-url" help:"Annotation engine base URL"`
	Store     string `name:"store" help:"SQLite run ledger path (empty keeps runs in memory)" type:"path"`
	Workers   int    `name:"workers" short:"w" help:"Documents processed in parallel"`
	LogLevel  string `name:"log-level" help:"debug, info, warn or error"`
	LogFormat string `name:"log-format" help:"text or json"`
}

// load resolves the configuration. lang, when set, overrides the language.
func (g *Globals) load(lang string) (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if g.Config != "" {
		var err error
		if cfg, err = config.LoadFile(g.Config); err != nil {
			return config.Config{}, nil, err
		}
	}
	cfg.ApplyEnv()
	if g.EngineURL != "" {
		cfg.Engine.URL = g.EngineURL
	}
	if g.Store != "" {
		cfg.Store.Path = g.Store
	}
	if g.Workers > 0 {
		cfg.Workers = g.Workers
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if lang != "" {
		cfg.Language = lang
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store.Path == "" {
		return memstore.New(), nil
	}
	return sqlite.OpenSQLite(ctx, cfg.Store.Path)
}

// open builds a Concord instance wired to the HTTP engine and the ledger.
func (g *Globals) open(ctx context.Context, lang string) (*concord.Concord, *slog.Logger, error) {
	cfg, log, err := g.load(lang)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	cc, err := concord.New(concord.Options{
		Config: cfg,
		Engine: &corenlp.Client{BaseURL: cfg.Engine.URL, Timeout: cfg.Engine.Timeout},
		Store:  st,
		Log:    log,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return cc, log, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
