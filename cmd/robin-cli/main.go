package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"robin/internal/analytics"
	"robin/internal/config"
	"robin/internal/dashboard"
	"robin/internal/domain"
	"robin/internal/session"
	"robin/internal/source"
	"robin/internal/store"
	"robin/internal/util"
	"robin/pkg/robin"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: robin-cli <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version                         Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  health                          Show analytical service health\n")
		fmt.Fprintf(os.Stderr, "  init SYMBOL                     Load market and options context\n")
		fmt.Fprintf(os.Stderr, "  ask SYMBOL QUESTION...          Ask a question about SYMBOL\n")
		fmt.Fprintf(os.Stderr, "  options SYMBOL [calls|puts]     Show the options display set\n")
		fmt.Fprintf(os.Stderr, "  direct SYMBOL [calls|puts]      Same as options, straight from Alpaca\n")
		fmt.Fprintf(os.Stderr, "  history [N]                     Show the last N archived messages\n")
	fmt.Fprintf(os.Stderr, "  series [SYMBOL [DAYS]]          List archived symbols or show SYMBOL's daily series\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "version" {
		fmt.Printf("robin-cli %s\n", version)
		return
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLoggerWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &app{cfg: cfg, log: logger}
	switch cmd {
	case "health":
		err = app.health(ctx)
	case "init":
		err = app.initTicker(ctx, args)
	case "ask":
		err = app.ask(ctx, args)
	case "options":
		err = app.options(ctx, args)
	case "direct":
		err = app.direct(ctx, args)
	case "history":
		err = app.history(ctx, args)
	case "series":
		err = app.series(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, robin.ErrCancelled) || errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file from ROBIN_CONFIG, then DefaultPath if
// it exists, then built-in defaults.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("ROBIN_CONFIG")
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	return config.Load(path)
}

type app struct {
	cfg *config.Config
	log *slog.Logger
}

func (a *app) client() *robin.Client {
	s := a.cfg.Service
	return robin.NewClient(s.BaseURL,
		robin.WithTimeout(s.Timeout),
		robin.WithRetry(s.MaxRetries, s.RetryDelay),
		robin.WithRetryClientErrors(s.RetryClientErrors),
		robin.WithRateLimit(s.RateLimitPerMin),
		robin.WithLogger(a.log.With("component", "robin")),
	)
}

// openArchive builds the archive from whichever storage paths are set.
func (a *app) openArchive() (store.Archive, error) {
	var (
		series     store.SeriesStore
		transcript store.TranscriptStore
	)
	if a.cfg.Storage.DataDir != "" {
		series = store.NewParquetStore(a.cfg.Storage.DataDir)
	}
	if a.cfg.Storage.SQLitePath != "" {
		s, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		transcript = s
	}
	if series == nil && transcript == nil {
		return store.NoopArchive{}, nil
	}
	return store.NewArchive(series, transcript), nil
}

func (a *app) controller() (*session.Controller, func(), error) {
	archive, err := a.openArchive()
	if err != nil {
		return nil, nil, err
	}
	c := session.NewController(a.client(), session.NewState(),
		session.WithArchive(archive),
		session.WithLogger(a.log.With("component", "session")),
	)
	closeFn := func() {
		c.Close()
		if err := archive.Close(); err != nil {
			a.log.Warn("closing archive", "error", err)
		}
	}
	return c, closeFn, nil
}

func (a *app) health(ctx context.Context) error {
	h, err := a.client().Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", h.Status)
	for name, status := range h.Components {
		fmt.Printf("  %-12s %s\n", name, status)
	}
	return nil
}

func (a *app) initTicker(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: init SYMBOL")
	}
	c, closeFn, err := a.controller()
	if err != nil {
		return err
	}
	defer closeFn()

	ac, err := c.InitializeTicker(ctx, args[0])
	if err != nil {
		return err
	}
	now := time.Now()
	dashboard.RenderMarket(os.Stdout, ac.Market, now)
	dashboard.RenderSummary(os.Stdout, analytics.Summarize(ac.Options))
	return nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: ask SYMBOL QUESTION...")
	}
	c, closeFn, err := a.controller()
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := c.InitializeTicker(ctx, args[0]); err != nil {
		return err
	}
	reply, err := c.Ask(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	fmt.Println(reply.Content)
	if ac := c.State().Context(); ac != nil && len(ac.Knowledge) > 0 {
		fmt.Println("\nknowledge:")
		dashboard.RenderKnowledge(os.Stdout, ac.Knowledge)
	}
	return nil
}

func (a *app) options(ctx context.Context, args []string) error {
	symbol, side, err := parseOptionsArgs("options", args)
	if err != nil {
		return err
	}
	c, closeFn, err := a.controller()
	if err != nil {
		return err
	}
	defer closeFn()

	ac, err := c.InitializeTicker(ctx, symbol)
	if err != nil {
		return err
	}
	return renderChain(ac, side)
}

func (a *app) direct(ctx context.Context, args []string) error {
	symbol, side, err := parseOptionsArgs("direct", args)
	if err != nil {
		return err
	}
	al := a.cfg.Alpaca
	if al.APIKey == "" || al.APISecret == "" {
		return errors.New("direct: alpaca.api_key and alpaca.api_secret are required")
	}
	src := source.NewAlpaca(al.APIKey, al.APISecret, al.DataURL, al.Feed, al.RateLimitPerMin)

	ac, err := src.Load(ctx, symbol)
	if err != nil {
		return err
	}
	archive, err := a.openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()
	if ac.Market != nil && ac.Market.Series != nil {
		if err := archive.RecordSeries(ctx, ac.Symbol, ac.Market.Series); err != nil {
			a.log.Warn("archive series failed", "error", err)
		}
	}
	if err := renderChain(ac, side); err != nil {
		return err
	}
	if len(ac.Knowledge) > 0 {
		fmt.Println("\nnews:")
		dashboard.RenderKnowledge(os.Stdout, ac.Knowledge)
	}
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("history: invalid count %q", args[0])
		}
		limit = n
	}
	if a.cfg.Storage.SQLitePath == "" {
		return errors.New("history: storage.sqlite_path is not configured")
	}
	s, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.ListMessages(ctx, "", limit)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, e := range entries {
		fmt.Printf("%s %-6s ", e.SessionID[:min(8, len(e.SessionID))], e.Symbol)
		dashboard.RenderMessage(os.Stdout, e.Message, now)
	}
	return nil
}

func (a *app) series(ctx context.Context, args []string) error {
	if a.cfg.Storage.DataDir == "" {
		return errors.New("series: storage.data_dir is not configured")
	}
	s := store.NewParquetStore(a.cfg.Storage.DataDir)

	if len(args) == 0 {
		symbols, err := s.ListSymbols(ctx)
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			fmt.Println(sym)
		}
		return nil
	}

	days := 30
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("series: invalid day count %q", args[1])
		}
		days = n
	}
	symbol := strings.ToUpper(args[0])
	end := time.Now().UTC()
	series, err := s.ReadSeries(ctx, symbol, end.AddDate(0, 0, -days), end)
	if err != nil {
		return err
	}
	return dashboard.RenderSeries(os.Stdout, symbol, series)
}

func parseOptionsArgs(cmd string, args []string) (string, domain.OptionType, error) {
	if len(args) < 1 {
		return "", "", fmt.Errorf("usage: %s SYMBOL [calls|puts]", cmd)
	}
	side := domain.OptionTypeCall
	if len(args) > 1 {
		s, ok := analytics.ParseSide(args[1])
		if !ok {
			return "", "", fmt.Errorf("%s: unknown side %q", cmd, args[1])
		}
		side = s
	}
	return args[0], side, nil
}

func renderChain(ac *domain.AnalysisContext, side domain.OptionType) error {
	var ref float64
	if ac.Market != nil {
		ref = ac.Market.Snapshot.CurrentPrice
	}
	now := time.Now()
	dashboard.RenderMarket(os.Stdout, ac.Market, now)
	dashboard.RenderSummary(os.Stdout, analytics.Summarize(ac.Options))
	fmt.Println()
	return dashboard.RenderOptions(os.Stdout, side, analytics.SelectDisplaySet(ac.Options, ref, side))
}
