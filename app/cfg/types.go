package cfg

// Command names accepted on the command line.
const (
	CommandFetch     = "fetch"
	CommandNormalize = "normalize"
	CommandMerge     = "merge"
	CommandRun       = "run"
	CommandServe     = "serve"
)

type Cfg struct {
	Command string

	// Data layout
	DataDir       string
	SourcesFile   string
	RawDir        string
	NormalizedDir string
	LatestDir     string

	// Pipeline
	WorkerCount       int
	UserAgent         string
	Date              string
	Since             string
	PreserveCreatedAt bool

	// Export and notifications
	DBPath      string
	NATSURL     string
	NATSSubject string

	// HTTP server
	Port         string
	BaseURL      string
	APIAccessKey string
	FeedSize     int
	RedisURL     string
	CacheTTL     int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
