package api

import (
	"cmp"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/cache"
	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/metrics"
)

// NewHandler wires the read API. feedCache may be nil, which disables
// caching of /feed.xml.
func NewHandler(opportunities database.OpportunityRepository, runs database.RunRepository,
	generator GeneratorInterface, feedCache cache.CacheInterface, c HandlerConfig) *Handler {
	return &Handler{
		opportunities: opportunities,
		runs:          runs,
		generator:     generator,
		feedCache:     feedCache,
		baseURL:       strings.TrimSuffix(c.BaseURL, "/"),
		feedSize:      c.FeedSize,
		cacheTTL:      c.CacheTTL,
		version:       c.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if count, err := h.opportunities.Count(ctx); err == nil {
		health["opportunities"] = count
	} else {
		log.Error().Err(err).Str("operation", "count").Msg("Database error")
	}

	if run, err := h.runs.LatestRun(ctx); err == nil && run != nil {
		health["last_run"] = run
	}

	if h.feedCache != nil {
		health["cache"] = h.feedCache.Health(ctx)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	counts, err := h.opportunities.CountBySource(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("operation", "count_by_source").Msg("Database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total := 0
	for _, count := range counts {
		total += count.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": counts,
		"total":   total,
	})
}

func (h *Handler) ListOpportunities(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxPageSize)

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	records, err := h.opportunities.List(c.Request.Context(), database.OpportunityFilter{
		Source: c.Query("source"),
		Tag:    c.Query("tag"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Error().Err(err).Str("operation", "list").Msg("Database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Opportunities: records,
		Count:         len(records),
		Limit:         limit,
		Offset:        offset,
	})
}

func (h *Handler) GetOpportunity(c *gin.Context) {
	id := c.Param("id")

	record, err := h.opportunities.Get(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("operation", "get").Str("id", id).Msg("Database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Opportunity not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	selfURL := ""
	if h.baseURL != "" {
		selfURL = h.baseURL + "/feed.xml"
	}

	cacheKey := ""
	if h.feedCache != nil {
		var runID int64
		if run, err := h.runs.LatestRun(ctx); err == nil && run != nil {
			runID = run.ID
		}
		cacheKey = cache.GenerateFeedKey(runID, h.feedSize, selfURL)

		rss, ok, err := h.feedCache.Get(ctx, cacheKey)
		if err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("Cache read failed")
		}
		if ok {
			h.writeFeed(c, rss, "HIT")
			return
		}
	}

	records, err := h.opportunities.List(ctx, database.OpportunityFilter{Limit: h.feedSize})
	if err != nil {
		log.Error().Err(err).Str("operation", "list").Msg("Database error")
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Title:       "Opportunities",
		Link:        cmp.Or(h.baseURL, "/"),
		Description: "Merged opportunity dataset",
		SelfURL:     selfURL,
		Generator:   "opportunity-comb/" + h.version,
		BuiltAt:     time.Now(),
	}

	rss, err := h.generator.Run(channel, records)
	if err != nil {
		log.Error().Err(err).Msg("RSS generation error")
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.feedCache != nil {
		if err := h.feedCache.Set(ctx, cacheKey, rss, h.cacheTTL); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("Cache write failed")
		}
	}

	h.writeFeed(c, rss, "MISS")
}

func (h *Handler) writeFeed(c *gin.Context, rss, cacheStatus string) {
	c.Header("Content-Type", "application/xml; charset=utf-8")
	if h.feedCache != nil {
		c.Header("X-Cache", cacheStatus)
		metrics.FeedCacheLookups.WithLabelValues(strings.ToLower(cacheStatus)).Inc()
	}
	c.String(http.StatusOK, rss)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	value := c.Query(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
