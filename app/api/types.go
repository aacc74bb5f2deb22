package api

import (
	"time"

	"github.com/lysyi3m/opportunity-comb/app/cache"
	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/opportunity"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, records []opportunity.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type HandlerConfig struct {
	BaseURL  string
	FeedSize int
	CacheTTL time.Duration
	Version  string
}

type Handler struct {
	opportunities database.OpportunityRepository
	runs          database.RunRepository
	generator     GeneratorInterface
	feedCache     cache.CacheInterface
	baseURL       string
	feedSize      int
	cacheTTL      time.Duration
	version       string
}

type listResponse struct {
	Opportunities []opportunity.Record `json:"opportunities"`
	Count         int                  `json:"count"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}
