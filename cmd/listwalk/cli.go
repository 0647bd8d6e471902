package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/antibot"
	"github.com/fwojciec/listwalk/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer

	DB        *sqlite.DB
	Runs      listwalk.RunService
	Sitemaps  listwalk.SitemapService
	Static    listwalk.PageFetcher
	Browser   listwalk.PageFetcher
	Extractor listwalk.Extractor
	Paginator listwalk.Paginator

	// Fields is the extraction field order, used for CSV column order.
	Fields []string

	// Throttle builds the per-walk throttle. Nil means production pacing.
	Throttle func() *antibot.Throttle
}

func (deps *Dependencies) newThrottle() *antibot.Throttle {
	if deps.Throttle != nil {
		return deps.Throttle()
	}
	return antibot.NewThrottle()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Walk     WalkCmd     `cmd:"" help:"Walk a paginated listing and collect its records"`
	Discover DiscoverCmd `cmd:"" help:"Discover listing page URLs from sitemaps and pagination"`
	Runs     RunsCmd     `cmd:"" help:"List persisted walk runs"`
}

// WalkCmd collects records from a paginated listing.
type WalkCmd struct {
	URL        string        `arg:"" optional:"" default:"https://books.toscrape.com/" help:"Listing URL to start from"`
	MaxRecords int           `default:"50" help:"Stop after collecting this many records (0 = unlimited)"`
	MaxPages   int           `default:"50" help:"Stop after visiting this many pages (0 = unlimited)"`
	Mode       string        `default:"static" enum:"static,browser,both" help:"Fetch mode"`
	Format     string        `default:"json" enum:"json,csv,both" help:"Output file format"`
	Out        string        `short:"o" default:"output" help:"Output directory"`
	Sessions   int           `default:"3" help:"Transport sessions to rotate between"`
	Proxy      []string      `help:"Proxy URL to route fetches through (repeatable)"`
	Timeout    time.Duration `default:"10s" help:"Per-fetch timeout"`
	Item       string        `help:"CSS selector matching one listing item"`
	Field      []string      `short:"F" help:"Extraction rule name=selector[@attr] (repeatable)"`
	DB         string        `help:"Persist the run to this SQLite database"`
	Verbose    bool          `short:"v" help:"Log fetches and pagination decisions"`
}

// DiscoverCmd finds listing page URLs in bulk without collecting records.
type DiscoverCmd struct {
	URL         string   `arg:"" help:"Site or listing URL to discover from"`
	MaxPages    int      `default:"100" help:"Stop after visiting this many pages (0 = unlimited)"`
	Concurrency int      `short:"c" default:"3" help:"Concurrent fetch limit"`
	RPS         float64  `name:"rps" default:"1" help:"Per-domain requests per second"`
	Filter      []string `short:"F" help:"Only keep URLs matching this regex (repeatable)"`
	Verbose     bool     `short:"v" help:"Log fetches and sitemap lookups"`
}

// RunsCmd inspects runs persisted by walk --db.
type RunsCmd struct {
	ID   string `help:"Dump one run's records as JSON"`
	Mode string `help:"Only show runs with this fetch mode"`
	DB   string `help:"SQLite database path (default $LISTWALK_DB or ~/.listwalk/listwalk.db)"`
}
