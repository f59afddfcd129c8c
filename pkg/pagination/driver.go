package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_pages_fetched_total",
		Help: "Total number of pages fetched by pagination drivers",
	}, []string{"iterator"})

	itemsYieldedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_items_yielded_total",
		Help: "Total number of items yielded by pagination drivers",
	}, []string{"iterator"})
)

// ErrInvalidConfig is returned by New for an unusable driver configuration.
var ErrInvalidConfig = errors.New("invalid pagination configuration")

// Strategy decides when an iteration has reached the end of the collection.
type Strategy int

const (
	// TotalCount stops once the items retrieved reach the total reported by the
	// endpoint, or when a page comes back empty. A page without a total is
	// followed by the next one, as with EmptyPage.
	TotalCount Strategy = iota + 1

	// EmptyPage stops on the first page with zero items. Any reported total is ignored.
	EmptyPage
)

func (s Strategy) String() string {
	switch s {
	case TotalCount:
		return "total_count"
	case EmptyPage:
		return "empty_page"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// CursorMode decides how the driver moves from one page to the next.
type CursorMode int

const (
	// PageNumber increments Cursor.Page after every page.
	PageNumber CursorMode = iota

	// LastSeenID sets Cursor.LastID to the identifier of the last item of the
	// previous page. A page shorter than PageSize ends the iteration.
	LastSeenID
)

// Cursor is the position handed to a FetchFunc. LastID is empty for the first
// page in LastSeenID mode.
type Cursor struct {
	Page   int
	LastID string
}

// Page is one fetched page. Total is only read by the TotalCount strategy,
// and only when TotalKnown is set.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalKnown bool
}

// FetchFunc retrieves the page at cur.
type FetchFunc[T any] func(ctx context.Context, cur Cursor) (Page[T], error)

// Admitter gates page fetches. *ratelimit.Window satisfies it.
type Admitter interface {
	Admit(ctx context.Context) error
}

// Config describes a paginated endpoint.
type Config[T any] struct {
	// Name labels metrics and log lines, e.g. "calls".
	Name string

	Strategy Strategy
	Cursor   CursorMode

	// StartPage is the first page number (JustCall uses 0 or 1 depending on endpoint).
	StartPage int

	// PageSize is the per_page value requested. Required in LastSeenID mode.
	PageSize int

	// ID extracts the cursor identifier from an item. Required in LastSeenID mode.
	ID func(T) (string, bool)

	// Gate is admitted before every page fetch. Optional.
	Gate Admitter
}

// Driver lazily walks a paginated endpoint. A Driver holds no iteration state,
// so Iterate may be called any number of times, from any goroutine.
type Driver[T any] struct {
	cfg   Config[T]
	fetch FetchFunc[T]
}

// New validates cfg and returns a Driver.
func New[T any](cfg Config[T], fetch FetchFunc[T]) (*Driver[T], error) {
	if fetch == nil {
		return nil, fmt.Errorf("%w: fetch function is required", ErrInvalidConfig)
	}
	switch cfg.Strategy {
	case TotalCount, EmptyPage:
	default:
		return nil, fmt.Errorf("%w: unknown strategy %s", ErrInvalidConfig, cfg.Strategy)
	}
	switch cfg.Cursor {
	case PageNumber:
	case LastSeenID:
		if cfg.ID == nil {
			return nil, fmt.Errorf("%w: LastSeenID cursor requires an ID function", ErrInvalidConfig)
		}
		if cfg.PageSize <= 0 {
			return nil, fmt.Errorf("%w: LastSeenID cursor requires a page size", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown cursor mode %d", ErrInvalidConfig, cfg.Cursor)
	}
	if cfg.Name == "" {
		cfg.Name = "unnamed"
	}
	return &Driver[T]{cfg: cfg, fetch: fetch}, nil
}

type options struct {
	max    int
	hasMax bool
}

// Option tunes a single iteration.
type Option func(*options)

// MaxItems caps the number of items yielded. Zero or a negative n yields
// nothing and fetches nothing.
func MaxItems(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.max = n
		o.hasMax = true
	}
}

// Iterate returns a single-use sequence over every item of the endpoint.
// Pages are fetched on demand, one at a time, as the consumer pulls items.
// A gate or fetch error is yielded once as (zero, err) and ends the sequence.
func (d *Driver[T]) Iterate(ctx context.Context, opts ...Option) iter.Seq2[T, error] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(T, error) bool) {
		var zero T
		if o.hasMax && o.max == 0 {
			return
		}

		cur := Cursor{Page: d.cfg.StartPage}
		retrieved := 0
		pages := 0

		logger := log.With().Str("iterator", d.cfg.Name).Logger()

		for {
			if d.cfg.Gate != nil {
				if err := d.cfg.Gate.Admit(ctx); err != nil {
					yield(zero, err)
					return
				}
			}

			page, err := d.fetch(ctx, cur)
			if err != nil {
				logger.Debug().Err(err).Int("page", cur.Page).Str("last_id", cur.LastID).Msg("Page fetch failed")
				yield(zero, err)
				return
			}
			pages++
			pagesFetchedTotal.WithLabelValues(d.cfg.Name).Inc()

			logger.Debug().
				Int("page", cur.Page).
				Str("last_id", cur.LastID).
				Int("items", len(page.Items)).
				Int("total", page.Total).
				Bool("total_known", page.TotalKnown).
				Msg("Page fetched")

			if len(page.Items) == 0 {
				break
			}

			for _, item := range page.Items {
				retrieved++
				itemsYieldedTotal.WithLabelValues(d.cfg.Name).Inc()
				if !yield(item, nil) {
					return
				}
				if o.hasMax && retrieved >= o.max {
					logger.Debug().Int("items", retrieved).Int("pages", pages).Msg("Item cap reached")
					return
				}
			}

			if d.cfg.Strategy == TotalCount && page.TotalKnown && retrieved >= page.Total {
				break
			}

			switch d.cfg.Cursor {
			case PageNumber:
				cur.Page++
			case LastSeenID:
				if len(page.Items) < d.cfg.PageSize {
					logger.Debug().Int("items", retrieved).Int("pages", pages).Msg("Short page, iteration complete")
					return
				}
				id, ok := d.cfg.ID(page.Items[len(page.Items)-1])
				if !ok || id == "" {
					yield(zero, fmt.Errorf("%s: last item of page has no identifier", d.cfg.Name))
					return
				}
				cur.LastID = id
			}
		}

		logger.Debug().Int("items", retrieved).Int("pages", pages).Msg("Iteration complete")
	}
}

// Collect drains seq into a slice. On error it returns the items gathered so far.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
