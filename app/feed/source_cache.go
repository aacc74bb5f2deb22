package feed

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const defaultSourceTimeout = 30

type SourceCache struct {
	sourcesFile string
	order       []string
	cache       map[string]*Source
	mu          sync.RWMutex
}

func NewSourceCache(sourcesFile string) *SourceCache {
	return &SourceCache{
		sourcesFile: sourcesFile,
		cache:       make(map[string]*Source),
	}
}

// Run loads the sources file. The file holds a list of sources in YAML or
// JSON form; file order is kept for every later stage.
func (sc *SourceCache) Run() error {
	sources, err := sc.parseSources()
	if err != nil {
		return fmt.Errorf("error loading %s: %w", sc.sourcesFile, err)
	}

	order := make([]string, 0, len(sources))
	cache := make(map[string]*Source, len(sources))

	for i := range sources {
		source := &sources[i]
		if err := sc.validateSource(source); err != nil {
			return fmt.Errorf("invalid source at index %d: %w", i, err)
		}
		if _, exists := cache[source.Source]; exists {
			return fmt.Errorf("duplicate source '%s' at index %d", source.Source, i)
		}

		cache[source.Source] = source
		order = append(order, source.Source)

		log.Debug().Str("source", source.Source).Bool("enabled", source.Enabled).Msg("Source loaded")
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.order = order
	sc.cache = cache

	return nil
}

func (sc *SourceCache) GetSource(name string) (*Source, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	source, ok := sc.cache[name]
	if !ok {
		return nil, fmt.Errorf("source '%s' not found", name)
	}
	return source, nil
}

func (sc *SourceCache) GetSources() []*Source {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sources := make([]*Source, 0, len(sc.order))
	for _, name := range sc.order {
		sources = append(sources, sc.cache[name])
	}
	return sources
}

func (sc *SourceCache) GetEnabledSources() []*Source {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	enabled := make([]*Source, 0, len(sc.order))
	for _, name := range sc.order {
		if source := sc.cache[name]; source.Enabled {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

func (sc *SourceCache) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.order)
}

func (sc *SourceCache) parseSources() ([]Source, error) {
	data, err := os.ReadFile(sc.sourcesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sources []Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}

	for i := range sources {
		if sources[i].Timeout == 0 {
			sources[i].Timeout = defaultSourceTimeout
		}
	}

	return sources, nil
}

func (sc *SourceCache) validateSource(source *Source) error {
	requiredFields := map[string]string{
		"source":     source.Source,
		"source_url": source.SourceURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	// The slug names the snapshot directory.
	if strings.ContainsAny(source.Source, `/\`) || strings.Contains(source.Source, "..") || source.Source == "." {
		return fmt.Errorf("invalid source slug %q: must not contain path separators or '..'", source.Source)
	}

	if source.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for i, filter := range source.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
