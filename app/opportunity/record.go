package opportunity

// Record is the canonical opportunity entry shared by every stage of the
// pipeline. Field order mirrors the published dataset.
type Record struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *Timestamp `json:"published_at"`
	Summary     *string    `json:"summary"`
	Tags        []string   `json:"tags"`
	Location    *string    `json:"location"` // reserved
	Deadline    *string    `json:"deadline"` // reserved
	Language    *string    `json:"language"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
}

// HasPublishedAt reports whether the record carries a real publication date.
func (r Record) HasPublishedAt() bool {
	return r.PublishedAt != nil && !r.PublishedAt.IsZero()
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
