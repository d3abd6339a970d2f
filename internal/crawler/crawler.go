package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/store"
)

var (
	ErrNoPages = errors.New("crawler needs at least one page")
	ErrPanic   = errors.New("panic while crawling item")
)

// Report summarises a run.
type Report struct {
	Discovered  int
	Items       int
	NewEpisodes int
	Interrupted bool
	Failures    []error
}

// Err joins the item failures, or returns nil when every item succeeded.
func (r Report) Err() error {
	return errors.Join(r.Failures...)
}

// Crawler walks the catalog and merges new episodes into a store. It is the
// only component that writes to the store.
type Crawler struct {
	opts  Options
	store *store.Store
	pages []Page

	discoverer *Discoverer
	details    *DetailFetcher
	paginator  *Paginator
	variants   *VariantResolver
	leaves     *LeafFetcher

	mu     sync.Mutex
	report Report
}

// New creates a Crawler. Items are processed on pages; with more than one page
// items run in parallel, one item per page at a time.
func New(opts Options, st *store.Store, pages ...Page) (*Crawler, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	leaves, err := NewLeafFetcher(opts.Selectors, opts.Timing, opts.AdPatterns, opts.PlayingMarker)
	if err != nil {
		return nil, err
	}
	return &Crawler{
		opts:       opts,
		store:      st,
		pages:      pages,
		discoverer: NewDiscoverer(opts.CatalogURL, opts.BaseURL, opts.Selectors, opts.Timing),
		details:    NewDetailFetcher(opts.BaseURL, opts.Selectors, opts.Timing),
		paginator:  NewPaginator(opts.Selectors, opts.Timing),
		variants:   NewVariantResolver(opts.Selectors, opts.Timing, opts.VariantKeywords),
		leaves:     leaves,
	}, nil
}

// Run discovers the catalog and processes every item in discovery order.
// Item failures are logged and collected in the report; Run only fails when
// ctx is done before discovery. Cancellation takes effect between items.
func (c *Crawler) Run(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	c.report = Report{}

	summaries := c.discoverer.Discover(ctx, c.pages[0])
	c.report.Discovered = len(summaries)
	if len(summaries) == 0 {
		slog.InfoContext(ctx, "nothing to crawl")
		return c.report, nil
	}
	slog.InfoContext(ctx, "crawling catalog", "items", len(summaries), "workers", len(c.pages), "batch_limit", c.opts.BatchLimit)

	if len(c.pages) == 1 {
		for _, s := range summaries {
			if ctx.Err() != nil {
				c.report.Interrupted = true
				break
			}
			c.process(ctx, c.pages[0], s)
		}
	} else {
		c.parallel(ctx, summaries)
	}

	if c.store.Dirty() {
		if err := c.store.Save(); err != nil {
			slog.ErrorContext(ctx, "saving store failed", "path", c.store.Path(), "error", err)
			c.fail(err)
		}
	}

	slog.InfoContext(ctx, "crawl finished",
		"items", c.report.Items,
		"new_episodes", c.report.NewEpisodes,
		"failures", len(c.report.Failures),
		"interrupted", c.report.Interrupted,
	)
	return c.report, nil
}

// parallel hands each item to the next free page.
func (c *Crawler) parallel(ctx context.Context, summaries []Summary) {
	pool := make(chan Page, len(c.pages))
	for _, p := range c.pages {
		pool <- p
	}

	var g errgroup.Group
	g.SetLimit(len(c.pages))
	for _, s := range summaries {
		if ctx.Err() != nil {
			c.mu.Lock()
			c.report.Interrupted = true
			c.mu.Unlock()
			break
		}
		g.Go(func() error {
			page := <-pool
			defer func() { pool <- page }()
			c.process(ctx, page, s)
			return nil
		})
	}
	_ = g.Wait()
}

// process crawls one item and persists the store when it changed. Failures
// never leave this function.
func (c *Crawler) process(ctx context.Context, page Page, s Summary) {
	log := slog.With("title", s.Title, "url", s.Identity)

	added, err := c.item(ctx, page, s)
	if err != nil {
		log.WarnContext(ctx, "item failed, moving on", "error", err)
		if snap, ok := page.(Snapshotter); ok && log.Enabled(ctx, slog.LevelDebug) {
			snap.Snapshot(ctx, s.Title)
		}
		c.fail(fmt.Errorf("%s: %w", s.Title, err))
	}

	c.mu.Lock()
	c.report.Items++
	c.report.NewEpisodes += added
	c.mu.Unlock()

	if added > 0 {
		log.InfoContext(ctx, "episodes merged", "added", added)
	}
	if c.store.Dirty() {
		if err := c.store.Save(); err != nil {
			log.ErrorContext(ctx, "saving store failed", "path", c.store.Path(), "error", err)
			c.fail(err)
		}
	}
}

func (c *Crawler) item(ctx context.Context, page Page, s Summary) (added int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if !c.store.Has(s.Identity) {
		md := c.details.Fetch(ctx, page, s.Identity)
		if md.Artwork == catalog.Unknown && s.Artwork != "" {
			md.Artwork = s.Artwork
		}
		c.store.Put(catalog.Item{
			Identity:       s.Identity,
			Title:          s.Title,
			DetailURL:      s.Identity,
			EpisodeListURL: s.EpisodeListURL,
			Tags:           s.Tags,
			Metadata:       md,
		})
	}

	refs, err := c.paginator.Enumerate(ctx, page, s.EpisodeListURL)
	if err != nil {
		return 0, fmt.Errorf("enumerating episodes: %w", err)
	}

	have := c.store.Indexes(s.Identity)
	fresh := lo.Filter(refs, func(r EpisodeRef, _ int) bool {
		idx, _ := r.Index()
		_, ok := have[idx]
		return !ok
	})
	if len(fresh) == 0 {
		slog.DebugContext(ctx, "item up to date", "title", s.Title, "episodes", len(refs))
		return 0, nil
	}
	if c.opts.BatchLimit > 0 && len(fresh) > c.opts.BatchLimit {
		slog.InfoContext(ctx, "capping new episodes for this run", "title", s.Title, "new", len(fresh), "limit", c.opts.BatchLimit)
		fresh = fresh[:c.opts.BatchLimit]
	}

	variants := c.variants.List(ctx, page)
	slog.DebugContext(ctx, "fetching episodes", "title", s.Title, "new", len(fresh), "variants", variants)

	var episodes []catalog.Episode
	for _, ref := range fresh {
		if ep, ok := c.episode(ctx, page, s, ref, variants); ok {
			episodes = append(episodes, ep)
		}
	}
	return c.store.Merge(s.Identity, episodes)
}

// episode resolves every variant of one episode. It reports false when no
// variant produced a source, leaving the episode for a later run.
func (c *Crawler) episode(ctx context.Context, page Page, s Summary, ref EpisodeRef, variants []string) (catalog.Episode, bool) {
	log := slog.With("title", s.Title, "url", s.Identity, "episode", ref.Label)
	ep := catalog.Episode{Label: ref.Label}

	for _, v := range variants {
		if !c.variants.Select(ctx, page, v) {
			log.WarnContext(ctx, "variant unavailable", "variant", v)
			continue
		}
		if err := c.paginator.Goto(ctx, page, ref.Page); err != nil {
			log.WarnContext(ctx, "returning to episode page failed", "variant", v, "page", ref.Page, "error", err)
			continue
		}
		leaf, err := c.leaves.Fetch(ctx, page, ref.Label)
		if err != nil {
			log.WarnContext(ctx, "episode selection failed", "variant", v, "error", err)
			continue
		}
		src, ok := leaf.Reference.Get()
		if !ok {
			log.InfoContext(ctx, "no player source", "variant", v)
			continue
		}
		ep.AddSource(catalog.Source{Variant: v, Reference: src})
		if ep.URL == "" {
			ep.URL = leaf.URL
		}
	}

	if len(ep.Sources) == 0 {
		log.WarnContext(ctx, "no source resolved for any variant")
		return ep, false
	}
	return ep, true
}

func (c *Crawler) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Failures = append(c.report.Failures, err)
}
