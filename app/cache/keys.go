package cache

import (
	"crypto/sha256"
	"fmt"
)

const keyPrefix = "opportunity-comb"

// GenerateFeedKey returns the key for a rendered feed. The run id changes
// after every merge, so a new dataset never hits an old entry.
func GenerateFeedKey(runID int64, size int, selfURL string) string {
	hash := sha256.Sum256([]byte(selfURL))
	return fmt.Sprintf("%s:feed:%d:%d:%x", keyPrefix, runID, size, hash[:8])
}
