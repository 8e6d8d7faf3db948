// Package cmd implements the pcs command line application to record trades
// and report positions valued with the weighted-average cost method.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/price"
	"github.com/etnz/costbasis/sqlite"
	"github.com/rs/zerolog"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile      = flag.String("config", "", "Path to the YAML configuration file (default $PCS_CONFIG or pcs.yaml)")
	ledgerFile      = flag.String("ledger-file", "", "Path to the JSONL ledger file")
	databaseFile    = flag.String("db", "", "Path to a SQLite ledger, used instead of the JSONL file")
	defaultCurrency = flag.String("currency", "", "Currency of a new ledger")
	Verbose         = flag.Bool("v", false, "Log debug information")
	rawOutput       = flag.Bool("raw", false, "Print markdown source instead of rendering it")
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// loadConfig reads the configuration and applies the global flags over it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return cfg, err
	}
	if *ledgerFile != "" {
		cfg.LedgerFile = *ledgerFile
	}
	if *databaseFile != "" {
		cfg.Database = *databaseFile
	}
	if *defaultCurrency != "" {
		cfg.Currency = strings.ToUpper(*defaultCurrency)
	}
	if *Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// session is an opened ledger, either a JSONL file loaded in memory or a
// SQLite database.
type session struct {
	costbasis.Store
	cfg  config.Config
	log  zerolog.Logger
	file string // JSONL ledger path, empty for SQLite.
	db   *sqlite.Store
}

// openSession opens the configured ledger. A missing JSONL file is an empty
// ledger, created on the first Save.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg)
	s := &session{cfg: cfg, log: log}

	if cfg.Database != "" {
		db, err := sqlite.Open(ctx, cfg.Database, sqlite.WithCurrency(cfg.Currency), sqlite.WithLogger(log))
		if err != nil {
			return nil, err
		}
		s.Store, s.db = db, db
		return s, nil
	}

	s.file = cfg.LedgerFile
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reads the JSONL ledger again. It does nothing for SQLite.
func (s *session) Reload() error {
	if s.file == "" {
		return nil
	}
	opts := []costbasis.Option{costbasis.WithCurrency(s.cfg.Currency), costbasis.WithLogger(s.log)}
	f, err := os.Open(s.file)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug().Str("file", s.file).Msg("ledger file does not exist, starting an empty ledger")
		s.Store, err = costbasis.NewLedger(opts...)
		return err
	}
	if err != nil {
		return fmt.Errorf("cannot open ledger %q: %w", s.file, err)
	}
	defer f.Close()
	l, err := costbasis.DecodeLedger(f, opts...)
	if err != nil {
		return fmt.Errorf("cannot read ledger %q: %w", s.file, err)
	}
	s.Store = l
	return nil
}

// Save writes the JSONL ledger back. The file is replaced atomically.
func (s *session) Save() error {
	if s.file == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.file), ".pcs-*.jsonl")
	if err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := costbasis.EncodeLedger(tmp, s.Store); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	s.log.Debug().Str("file", s.file).Msg("ledger saved")
	return nil
}

func (s *session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// account returns name, or the only account of the ledger when name is empty.
func (s *session) account(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	accounts, err := s.Accounts()
	if err != nil {
		return "", err
	}
	if len(accounts) != 1 {
		return "", fmt.Errorf("the ledger has %d accounts, use -a to choose one", len(accounts))
	}
	return accounts[0], nil
}

// priceProvider returns the configured price source. file, when set,
// overrides the configuration. Without any source every instrument is valued
// at its average cost.
func (s *session) priceProvider(file string) (costbasis.PriceProvider, error) {
	if file == "" {
		file = s.cfg.Prices.File
	}
	switch {
	case file != "":
		return price.LoadStatic(file)
	case s.cfg.Prices.URL != "":
		return &price.HTTP{
			URL:      s.cfg.Prices.URL,
			Path:     s.cfg.Prices.Path,
			Currency: s.cfg.Prices.Currency,
			Client:   price.NewDailyClient(s.cfg.Prices.CacheDir, s.log),
		}, nil
	default:
		s.log.Warn().Msg("no price source configured, holdings are valued at average cost")
		return price.Static{}, nil
	}
}

// printMarkdown renders markdown for the terminal.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}
