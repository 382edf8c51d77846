package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/TobiSchelling/personality-predictor/internal/database"
)

// Cache runs the pipeline at most once per Options.Key and keeps the
// result, failures included, for the life of the process. Concurrent
// callers asking for the same key share one run.
type Cache struct {
	db     *database.DB
	logger *zap.Logger
	run    func(context.Context, Options) *Result

	group   singleflight.Group
	mu      sync.RWMutex
	results map[string]*Result
}

// NewCache creates an empty cache. db may be nil.
func NewCache(db *database.DB, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		db:      db,
		logger:  logger,
		results: make(map[string]*Result),
	}
	c.run = func(ctx context.Context, opts Options) *Result {
		return New(opts, c.db, c.logger).Run(ctx)
	}
	return c
}

// Get returns the result for opts, running the pipeline on first use.
// If ctx ends first, Get returns a Result carrying ctx.Err() that is not
// cached; the run itself carries on for the other callers.
func (c *Cache) Get(ctx context.Context, opts Options) *Result {
	key := opts.Key()
	if r, ok := c.lookup(key); ok {
		return r
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if r, ok := c.lookup(key); ok {
			return r, nil
		}
		r := c.run(context.WithoutCancel(ctx), opts)
		c.mu.Lock()
		c.results[key] = r
		c.mu.Unlock()
		return r, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("shared pipeline run", zap.String("key", key))
		}
		return res.Val.(*Result)
	case <-ctx.Done():
		return &Result{Key: key, Err: ctx.Err()}
	}
}

// Peek returns the cached result for opts without running anything.
func (c *Cache) Peek(opts Options) (*Result, bool) {
	return c.lookup(opts.Key())
}

func (c *Cache) lookup(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[key]
	return r, ok
}
