package handlers

import (
	"github.com/wanxtv/wanx/backend/internal/auth"
	"github.com/wanxtv/wanx/backend/internal/cache"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/middleware"
	"github.com/wanxtv/wanx/backend/internal/migu"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
)

// Options are the request-independent settings handlers read.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int

	UploadSecret string
	CDNBaseURL   string

	HallGameURL     string
	AppDownloadURL  string
	IOSHideMoney    bool
	VIPZoneGridName string
}

// Deps are everything the handlers talk to.
type Deps struct {
	Videos    repository.VideoRepository
	Users     repository.UserRepository
	Games     repository.GameRepository
	Comments  repository.CommentRepository
	Relations repository.RelationRepository
	Reports   repository.ReportRepository
	Editorial repository.EditorialRepository

	Feeds    *feeds.Catalog
	Auth     *auth.Service
	Partners *auth.PartnerGuard
	Locker   cache.Locker
	Jobs     cache.JobQueue
	Center   migu.Center
	Pay      migu.Pay
	Words    *util.WordFilter

	// Checks are run by /health, keyed by component name.
	Checks map[string]HealthCheck
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	videos    repository.VideoRepository
	users     repository.UserRepository
	games     repository.GameRepository
	comments  repository.CommentRepository
	relations repository.RelationRepository
	reports   repository.ReportRepository
	editorial repository.EditorialRepository

	feeds    *feeds.Catalog
	auth     *auth.Service
	partners *auth.PartnerGuard
	locker   cache.Locker
	jobs     cache.JobQueue
	center   migu.Center
	pay      migu.Pay
	words    *util.WordFilter
	checks   map[string]HealthCheck

	limiters []*middleware.RateLimiter
	opts     Options
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps, opts Options) *Handlers {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = 100
	}
	if opts.VIPZoneGridName == "" {
		opts.VIPZoneGridName = "会员"
	}
	return &Handlers{
		videos:    d.Videos,
		users:     d.Users,
		games:     d.Games,
		comments:  d.Comments,
		relations: d.Relations,
		reports:   d.Reports,
		editorial: d.Editorial,
		feeds:     d.Feeds,
		auth:      d.Auth,
		partners:  d.Partners,
		locker:    d.Locker,
		jobs:      d.Jobs,
		center:    d.Center,
		pay:       d.Pay,
		words:     d.Words,
		checks:    d.Checks,
		opts:      opts,
	}
}
