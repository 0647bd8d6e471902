package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/antibot"
	"github.com/fwojciec/listwalk/goquery"
	walkhttp "github.com/fwojciec/listwalk/http"
	"github.com/fwojciec/listwalk/rod"
	walkslog "github.com/fwojciec/listwalk/slog"
	"github.com/fwojciec/listwalk/sqlite"
)

func main() {
	// Interrupt cancels the context so a cut-short walk still writes
	// whatever it collected.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path used when a command has no --db flag.
	DBPath string

	// SQLite database, open only for commands that persist or read runs.
	DB *sqlite.DB

	// RunService for end-to-end testing.
	RunService listwalk.RunService
}

// NewMain creates a new Main with default database path.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	// Create Kong parser with dependency binding
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("listwalk"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags using Kong
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'listwalk --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	// Parse arguments first to know which command and its flags
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Open the database only for commands that read or persist runs
	dbPath := ""
	switch cmd {
	case "walk":
		dbPath = cli.Walk.DB
	case "runs":
		dbPath = cli.Runs.DB
		if dbPath == "" {
			dbPath = m.DBPath
		}
	}
	if dbPath != "" {
		m.DB = sqlite.NewDB(dbPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set LISTWALK_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", dbPath, err)
		}
		defer m.Close()
		m.RunService = sqlite.NewRunService(m.DB)
		deps.DB = m.DB
		deps.Runs = m.RunService
	}

	// Wire command-specific dependencies based on command
	switch cmd {
	case "walk":
		rotator := antibot.NewRotator(antibot.WithProxies(cli.Walk.Proxy))

		cfg := goquery.DefaultConfig()
		if cli.Walk.Item != "" {
			cfg.Item = cli.Walk.Item
		}
		if len(cli.Walk.Field) > 0 {
			rules, err := parseFieldRules(cli.Walk.Field)
			if err != nil {
				fmt.Fprintf(stderr, "error: %s\n", listwalk.ErrorMessage(err))
				return err
			}
			cfg.Fields = rules
		}
		extractor := goquery.NewExtractor(cfg)
		deps.Extractor = extractor
		deps.Fields = extractor.Fields()
		deps.Paginator = goquery.NewResolver()

		if cli.Walk.Mode == listwalk.ModeStatic || cli.Walk.Mode == listwalk.ModeBoth {
			pool, err := walkhttp.NewSessionPool(rotator,
				walkhttp.WithPoolSize(cli.Walk.Sessions),
				walkhttp.WithSessionTimeout(cli.Walk.Timeout),
			)
			if err != nil {
				return fmt.Errorf("failed to create session pool: %w", err)
			}
			fetcher := walkhttp.NewFetcher(pool)
			defer fetcher.Close()
			deps.Static = fetcher
		}
		if cli.Walk.Mode == listwalk.ModeBrowser || cli.Walk.Mode == listwalk.ModeBoth {
			manager, err := rod.NewBrowserManager()
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			fetcher := rod.NewFetcher(manager, rotator, rod.WithTimeout(cli.Walk.Timeout))
			defer fetcher.Close()
			deps.Browser = fetcher
		}

		if cli.Walk.Verbose {
			logger := slog.New(slog.NewTextHandler(stderr, nil))
			if deps.Static != nil {
				deps.Static = walkslog.NewLoggingFetcher(deps.Static, logger)
			}
			if deps.Browser != nil {
				deps.Browser = walkslog.NewLoggingFetcher(deps.Browser, logger)
			}
			deps.Paginator = walkslog.NewLoggingPaginator(deps.Paginator, logger)
		}

	case "discover":
		rotator := antibot.NewRotator()
		pool, err := walkhttp.NewSessionPool(rotator)
		if err != nil {
			return fmt.Errorf("failed to create session pool: %w", err)
		}
		fetcher := walkhttp.NewFetcher(pool)
		defer fetcher.Close()
		deps.Static = fetcher
		deps.Extractor = goquery.NewExtractor(goquery.DefaultConfig())
		deps.Paginator = goquery.NewResolver()
		deps.Sitemaps = walkhttp.NewSitemapService(nil, walkhttp.WithSitemapIdentity(rotator))

		if cli.Discover.Verbose {
			logger := slog.New(slog.NewTextHandler(stderr, nil))
			deps.Static = walkslog.NewLoggingFetcher(deps.Static, logger)
			deps.Sitemaps = walkslog.NewLoggingSitemapService(deps.Sitemaps, logger)
			deps.Paginator = walkslog.NewLoggingPaginator(deps.Paginator, logger)
		}
	}

	return kongCtx.Run(deps)
}

// parseFieldRules turns --field name=selector[@attr] flags into
// extraction rules. Link-shaped attributes resolve against the page URL.
func parseFieldRules(flags []string) ([]goquery.FieldRule, error) {
	rules := make([]goquery.FieldRule, 0, len(flags))
	for _, flag := range flags {
		name, rest, ok := strings.Cut(flag, "=")
		if !ok || name == "" || rest == "" {
			return nil, listwalk.Errorf(listwalk.EINVALID, "invalid field rule %q, expected name=selector[@attr]", flag)
		}
		selector, attr, _ := strings.Cut(rest, "@")
		if selector == "" {
			return nil, listwalk.Errorf(listwalk.EINVALID, "invalid field rule %q, expected name=selector[@attr]", flag)
		}
		rules = append(rules, goquery.FieldRule{
			Name:     name,
			Selector: selector,
			Attr:     attr,
			Resolve:  attr == "href" || attr == "src",
		})
	}
	return rules, nil
}

// defaultDBPath returns the database path, checking LISTWALK_DB env var
// first, then falling back to ~/.listwalk/listwalk.db.
func defaultDBPath() string {
	if path := os.Getenv("LISTWALK_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "listwalk.db"
	}
	dir := filepath.Join(home, ".listwalk")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "listwalk.db")
}
