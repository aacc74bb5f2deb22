package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

// DayLayout is the form of run dates and batch file names.
const DayLayout = "2006-01-02"

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type fetchCommand struct{}

type normalizeCommand struct {
	Date string `long:"date" description:"Snapshot date to normalize (YYYY-MM-DD, default today UTC)"`
}

type mergeCommand struct {
	Since             string `long:"since" description:"Only merge batches named on or after this date (YYYY-MM-DD)"`
	PreserveCreatedAt bool   `long:"preserve-created-at" description:"Keep the earliest created_at seen for each record"`
}

type runCommand struct {
	PreserveCreatedAt bool `long:"preserve-created-at" description:"Keep the earliest created_at seen for each record"`
}

type serveCommand struct {
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL used in the republished feed"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for /opportunities (optional)"`
	FeedSize     int    `long:"feed-size" env:"FEED_SIZE" default:"50" description:"Number of records in /feed.xml"`
	RedisURL     string `long:"redis-url" env:"REDIS_URL" description:"Redis for the /feed.xml cache (default in-memory)"`
	CacheTTL     int    `long:"cache-ttl" env:"CACHE_TTL" default:"300" description:"Seconds a rendered /feed.xml stays cached (0 disables)"`
}

type rawCfg struct {
	// Data layout
	DataDir     string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Root directory for snapshots, batches and the published dataset"`
	SourcesFile string `long:"sources" env:"SOURCES_FILE" description:"Sources file (default <data-dir>/sources/sources.yml)"`

	// Pipeline
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of concurrent workers for fetching and normalizing"`
	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"opportunity-comb/1.0" description:"User agent string for HTTP requests"`

	// Export and notifications
	DBPath      string `long:"db-path" env:"DB_PATH" description:"SQLite export file (empty disables the export)"`
	NATSURL     string `long:"nats-url" env:"NATS_URL" description:"NATS server for dataset-updated events (optional)"`
	NATSSubject string `long:"nats-subject" env:"NATS_SUBJECT" default:"opportunities.dataset.updated" description:"Subject for dataset-updated events"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for log timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Fetch     fetchCommand     `command:"fetch" description:"Download every enabled source into raw snapshots"`
	Normalize normalizeCommand `command:"normalize" description:"Normalize raw snapshots into a dated batch"`
	Merge     mergeCommand     `command:"merge" description:"Merge all batches into the published dataset"`
	Run       runCommand       `command:"run" description:"Fetch, normalize and merge in one pass"`
	Serve     serveCommand     `command:"serve" description:"Serve the exported dataset over HTTP"`
}

var globalCfg *Cfg

// Load parses args and stores the resulting configuration globally. It
// returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Command:       parser.Active.Name,
		DataDir:       raw.DataDir,
		SourcesFile:   cmp.Or(raw.SourcesFile, filepath.Join(raw.DataDir, "sources", "sources.yml")),
		RawDir:        filepath.Join(raw.DataDir, "raw"),
		NormalizedDir: filepath.Join(raw.DataDir, "normalized", "opportunities"),
		LatestDir:     filepath.Join(raw.DataDir, "latest"),
		WorkerCount:   raw.WorkerCount,
		UserAgent:     raw.UserAgent,
		DBPath:        raw.DBPath,
		NATSURL:       raw.NATSURL,
		NATSSubject:   raw.NATSSubject,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	switch cfg.Command {
	case CommandNormalize:
		cfg.Date = raw.Normalize.Date
	case CommandMerge:
		cfg.Since = raw.Merge.Since
		cfg.PreserveCreatedAt = raw.Merge.PreserveCreatedAt
	case CommandRun:
		cfg.PreserveCreatedAt = raw.Run.PreserveCreatedAt
	case CommandServe:
		cfg.Port = raw.Serve.Port
		cfg.BaseURL = raw.Serve.BaseURL
		cfg.APIAccessKey = raw.Serve.APIAccessKey
		cfg.FeedSize = raw.Serve.FeedSize
		cfg.RedisURL = raw.Serve.RedisURL
		cfg.CacheTTL = raw.Serve.CacheTTL
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("Invalid timezone, using system default")
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.Date != "" {
		if _, err := time.Parse(DayLayout, cfg.Date); err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", cfg.Date)
		}
	}
	if cfg.Since != "" {
		if _, err := time.Parse(DayLayout, cfg.Since); err != nil {
			return fmt.Errorf("invalid --since %q: expected YYYY-MM-DD", cfg.Since)
		}
	}
	if cfg.Command == CommandServe {
		if cfg.DBPath == "" {
			return errors.New("serve requires --db-path")
		}
		if cfg.FeedSize < 1 {
			return fmt.Errorf("feed size must be at least 1, got %d", cfg.FeedSize)
		}
		if cfg.CacheTTL < 0 {
			return fmt.Errorf("cache TTL must not be negative, got %d", cfg.CacheTTL)
		}
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
