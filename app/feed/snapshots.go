package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const latestSnapshot = "latest"

var ErrSnapshotNotFound = errors.New("raw snapshot not found")

// Snapshots stores raw feed bodies as <rawDir>/<source>/<day>.xml with a
// copy in <rawDir>/<source>/latest.xml.
type Snapshots struct {
	rawDir string
}

func NewSnapshots(rawDir string) *Snapshots {
	return &Snapshots{rawDir: rawDir}
}

func (s *Snapshots) Save(source, day string, data []byte) (string, string, error) {
	dir := filepath.Join(s.rawDir, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	dailyPath := s.path(source, day)
	latestPath := s.path(source, latestSnapshot)

	for _, path := range []string{dailyPath, latestPath} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", "", fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	return dailyPath, latestPath, nil
}

// Find returns the snapshot for day, falling back to latest.xml.
func (s *Snapshots) Find(source, day string) (string, error) {
	dailyPath := s.path(source, day)
	if fileExists(dailyPath) {
		return dailyPath, nil
	}

	latestPath := s.path(source, latestSnapshot)
	if fileExists(latestPath) {
		log.Warn().Str("source", source).Str("day", day).Msg("No daily snapshot, falling back to latest")
		return latestPath, nil
	}

	return "", fmt.Errorf("%w for source %s", ErrSnapshotNotFound, source)
}

// Read finds and loads the snapshot for day.
func (s *Snapshots) Read(source, day string) ([]byte, string, error) {
	path, err := s.Find(source, day)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	return data, path, nil
}

func (s *Snapshots) path(source, name string) string {
	return filepath.Join(s.rawDir, source, name+".xml")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
