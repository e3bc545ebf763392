package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// TimeSentinel is the cursor handed out after an empty round of a time-ordered feed.
	// It is far in the past but never reads as "now".
	TimeSentinel = 1000
	// CountOrigin is where "from now" starts for feeds ordered by a counter such as views.
	CountOrigin = 10000000
	// CountSentinel is the cursor handed out after an empty round of a counter-ordered feed.
	CountSentinel = -1

	SafeguardMaxRounds  = "max_rounds"
	SafeguardMaxScanned = "max_scanned"

	defaultConcurrency = 8
)

// Candidate is an identifier and the sort key used to advance the cursor past it.
type Candidate struct {
	ID  string
	Key float64
}

// Source returns up to limit candidates ordered by (key, id) in the feed's direction,
// bounded exclusively by cursor: past its value, or when the cursor carries an id, past
// (value, id). Page cursors are served by offset.
// The cursor passed to Query is never FromNow.
type Source[P any] interface {
	Query(ctx context.Context, params P, cursor Cursor, limit int) ([]Candidate, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[P any] func(ctx context.Context, params P, cursor Cursor, limit int) ([]Candidate, error)

func (f SourceFunc[P]) Query(ctx context.Context, params P, cursor Cursor, limit int) ([]Candidate, error) {
	return f(ctx, params, cursor, limit)
}

// Repository resolves a candidate id. A missing object is reported with ok=false, not an error.
type Repository[T any] interface {
	Get(ctx context.Context, id string) (value T, ok bool, err error)
}

// BatchRepository is used instead of per-id lookups when a repository can resolve
// a whole round in one call. Missing ids are simply absent from the map.
type BatchRepository[T any] interface {
	Repository[T]
	GetMany(ctx context.Context, ids []string) (map[string]T, error)
}

// RepositoryFunc adapts a function to Repository.
type RepositoryFunc[T any] func(ctx context.Context, id string) (T, bool, error)

func (f RepositoryFunc[T]) Get(ctx context.Context, id string) (T, bool, error) {
	return f(ctx, id)
}

// Request is immutable input to a single fetch. Params identifies what is paginated
// and is handed to the Source unchanged on every round.
type Request[P any] struct {
	PageSize int
	Cursor   Cursor
	Params   P
}

// Item is an eligible object with the key of the candidate it came from.
type Item[T any] struct {
	ID    string
	Key   float64
	Value T
}

// Stats describes the work a fetch did.
type Stats struct {
	Rounds    int
	Scanned   int
	Resolved  int
	Eligible  int
	Safeguard string
}

// Page is the result of a fetch.
//
// NextCursor usually sits just past the last candidate considered. When the last round
// yields more eligible items than fit, Items is cut to the page size and NextCursor points
// just past the last item served instead, with EndOfData false, so the cut items lead the
// next page. A timestamp NextCursor carries that candidate's id (see AtAfter).
type Page[T any] struct {
	Items      []Item[T]
	EndOfData  bool
	NextCursor Cursor
	Stats      Stats
}

// Values returns the item values in order.
func (p *Page[T]) Values() []T {
	out := make([]T, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Value
	}
	return out
}

type options struct {
	name        string
	order       Order
	origin      func() float64
	sentinel    float64
	hasSentinel bool
	maxRounds   int
	maxScanned  int
	concurrency int
}

// Option configures a Fetcher.
type Option func(*options)

// WithName labels logs, spans and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithOrder sets the direction the Source returns candidates in.
func WithOrder(order Order) Option {
	return func(o *options) { o.order = order }
}

// WithOrigin sets the value FromNow resolves to.
func WithOrigin(origin func() float64) Option {
	return func(o *options) { o.origin = origin }
}

// WithSentinel sets the cursor returned after an empty timestamp round.
func WithSentinel(v float64) Option {
	return func(o *options) {
		o.sentinel = v
		o.hasSentinel = true
	}
}

// WithoutSentinel keeps the cursor where it was after an empty round.
// Ascending feeds use this so a client can poll for new items.
func WithoutSentinel() Option {
	return func(o *options) { o.hasSentinel = false }
}

// WithMaxRounds caps query rounds per fetch. Zero means unbounded.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// WithMaxScanned caps candidates scanned per fetch. Zero means unbounded.
func WithMaxScanned(n int) Option {
	return func(o *options) { o.maxScanned = n }
}

// WithConcurrency bounds parallel point lookups within one round.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// CountOrdered configures a feed ordered by a non-negative counter.
func CountOrdered() Option {
	return func(o *options) {
		o.origin = func() float64 { return CountOrigin }
		WithSentinel(CountSentinel)(o)
	}
}

// Now is the default origin: the current wall-clock time in float seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Fetcher pages through one feed. It holds no per-request state and is safe for
// concurrent use.
type Fetcher[P, T any] struct {
	source Source[P]
	repo   Repository[T]
	opts   options
}

// New builds a Fetcher. Defaults: descending order, origin Now, sentinel TimeSentinel,
// no caps.
func New[P, T any](source Source[P], repo Repository[T], opts ...Option) *Fetcher[P, T] {
	o := options{
		name:        "feed",
		order:       Descending,
		origin:      Now,
		sentinel:    TimeSentinel,
		hasSentinel: true,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return &Fetcher[P, T]{source: source, repo: repo, opts: o}
}

// Name returns the feed label.
func (f *Fetcher[P, T]) Name() string { return f.opts.name }

// Fetch runs a single fetch with a one-off Fetcher.
func Fetch[P, T any](ctx context.Context, req Request[P], source Source[P], repo Repository[T], filter Filter[T], opts ...Option) (*Page[T], error) {
	return New(source, repo, opts...).Fetch(ctx, req, filter)
}

// Fetch returns up to req.PageSize eligible items. In timestamp mode it keeps querying
// past the last candidate seen until the quota is met or the source runs dry; in page
// mode it runs exactly one round. A nil filter accepts everything.
func (f *Fetcher[P, T]) Fetch(ctx context.Context, req Request[P], filter Filter[T]) (*Page[T], error) {
	if err := f.validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := otel.Tracer("feed").Start(ctx, "feed.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("feed.name", f.opts.name),
		attribute.String("feed.mode", req.Cursor.Mode().String()),
		attribute.Int("feed.page_size", req.PageSize),
	)

	page, err := f.run(ctx, req, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordFeedError(f.opts.name, stageOf(err))
		logger.Log.Warn("Feed fetch failed",
			logger.WithFeed(f.opts.name),
			zap.String("cursor", req.Cursor.String()),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("feed.rounds", page.Stats.Rounds),
		attribute.Int("feed.scanned", page.Stats.Scanned),
		attribute.Int("feed.items", len(page.Items)),
		attribute.Bool("feed.end_of_data", page.EndOfData),
	)
	metrics.RecordFeedFetch(f.opts.name, req.Cursor.Mode().String(), page.Stats.Rounds, page.Stats.Scanned, time.Since(start))
	if page.Stats.Safeguard != "" {
		metrics.RecordFeedSafeguard(f.opts.name, page.Stats.Safeguard)
		logger.Log.Warn("Feed backfill stopped by safeguard",
			logger.WithFeed(f.opts.name),
			zap.String("safeguard", page.Stats.Safeguard),
			zap.Int("rounds", page.Stats.Rounds),
			zap.Int("scanned", page.Stats.Scanned),
		)
	}
	return page, nil
}

func (f *Fetcher[P, T]) validate(req Request[P]) error {
	if req.PageSize < 1 {
		return fmt.Errorf("%w: page size must be >= 1, got %d", ErrInvalidRequest, req.PageSize)
	}
	c := req.Cursor
	// A sentinel handed out by this feed is a valid (empty) position even when negative.
	if c.Mode() == ModeTimestamp && !c.IsFromNow() && f.opts.hasSentinel && c.Value() == f.opts.sentinel {
		return nil
	}
	return c.validate()
}

func (f *Fetcher[P, T]) run(ctx context.Context, req Request[P], filter Filter[T]) (*Page[T], error) {
	cursor := req.Cursor.resolve(f.opts.origin)
	size := req.PageSize

	var stats Stats
	collected := make([]Item[T], 0, size)
	var last []Candidate

	for {
		candidates, err := f.source.Query(ctx, req.Params, cursor, size)
		if err != nil {
			return nil, &SourceError{Feed: f.opts.name, Stage: "query", Round: stats.Rounds + 1, Err: err}
		}
		if len(candidates) > size {
			candidates = candidates[:size]
		}
		stats.Rounds++
		stats.Scanned += len(candidates)

		values, err := f.resolve(ctx, candidates)
		if err != nil {
			return nil, &SourceError{Feed: f.opts.name, Stage: "resolve", Round: stats.Rounds, Err: err}
		}
		for i, c := range candidates {
			if !values[i].ok {
				continue
			}
			stats.Resolved++
			if f.eligible(filter, values[i].value) {
				stats.Eligible++
				collected = append(collected, Item[T]{ID: c.ID, Key: c.Key, Value: values[i].value})
			}
		}
		last = candidates

		if cursor.IsPage() {
			break
		}
		cursor = f.advance(cursor, candidates)
		if len(candidates) < size {
			break
		}
		if len(collected) >= size {
			break
		}
		if f.opts.maxRounds > 0 && stats.Rounds >= f.opts.maxRounds {
			stats.Safeguard = SafeguardMaxRounds
			break
		}
		if f.opts.maxScanned > 0 && stats.Scanned >= f.opts.maxScanned {
			stats.Safeguard = SafeguardMaxScanned
			break
		}
	}

	page := &Page[T]{Stats: stats}
	exhausted := len(last) < size

	if req.Cursor.IsPage() {
		page.Items = collected
		page.EndOfData = exhausted
		page.NextCursor = PageCursor(req.Cursor.Page() + 1)
		return page, nil
	}

	if len(collected) > size {
		// The tail of the last round did not fit; resume right after the last item served.
		page.Items = collected[:size]
		lastServed := page.Items[size-1]
		page.NextCursor = AtAfter(lastServed.Key, lastServed.ID)
		page.EndOfData = false
		return page, nil
	}

	page.Items = collected
	page.NextCursor = cursor
	page.EndOfData = exhausted && stats.Safeguard == ""
	return page, nil
}

// advance moves a timestamp cursor past the last candidate of a round.
func (f *Fetcher[P, T]) advance(cursor Cursor, candidates []Candidate) Cursor {
	if len(candidates) > 0 {
		c := candidates[len(candidates)-1]
		return AtAfter(c.Key, c.ID)
	}
	if f.opts.hasSentinel {
		return At(f.opts.sentinel)
	}
	return cursor
}

type resolved[T any] struct {
	value T
	ok    bool
}

// resolve looks candidates up, preserving candidate order in the result.
func (f *Fetcher[P, T]) resolve(ctx context.Context, candidates []Candidate) ([]resolved[T], error) {
	out := make([]resolved[T], len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}

	if batch, ok := f.repo.(BatchRepository[T]); ok {
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		found, err := batch.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, c := range candidates {
			if v, ok := found[c.ID]; ok {
				out[i] = resolved[T]{value: v, ok: true}
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			v, ok, err := f.repo.Get(gctx, c.ID)
			if err != nil {
				return fmt.Errorf("get %s: %w", c.ID, err)
			}
			out[i] = resolved[T]{value: v, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// eligible evaluates filter, treating a panic as "not eligible".
func (f *Fetcher[P, T]) eligible(filter Filter[T], v T) (ok bool) {
	if filter == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Eligibility filter panicked",
				logger.WithFeed(f.opts.name),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return filter(v)
}

func stageOf(err error) string {
	if se, ok := err.(*SourceError); ok {
		return se.Stage
	}
	return "unknown"
}
