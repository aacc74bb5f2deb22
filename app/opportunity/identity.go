package opportunity

import (
	"crypto/sha1"
	"encoding/hex"
)

// Identity derives the stable record id for a (source, url) pair. The
// digest input is "source|url", which keeps ids compatible with datasets
// produced by earlier versions of the pipeline.
func Identity(source, url string) string {
	hash := sha1.Sum([]byte(source + "|" + url))
	return hex.EncodeToString(hash[:])
}
