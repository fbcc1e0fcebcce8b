// Package plancatalog caches billing plans for the life of the process.
// Plans change only through deploys or admin tooling, so entries never
// expire; Clear drops them all.
package plancatalog

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/dalemusser/onepager/internal/domain/models"
)

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 64

// ErrUnknownPlan is returned for a plan id the source does not know.
var ErrUnknownPlan = errors.New("unknown plan")

// Source loads a plan by id. planstore.Store satisfies it.
type Source interface {
	GetByID(ctx context.Context, id string) (models.Plan, error)
}

// Catalog is safe for concurrent use.
type Catalog struct {
	src      Source
	notFound error
	cache    *lru.Cache[string, models.Plan]
	group    singleflight.Group
}

// New returns a Catalog in front of src. notFound is the source's not-found
// sentinel; it is reported to callers as ErrUnknownPlan.
func New(src Source, size int, notFound error) (*Catalog, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, models.Plan](size)
	if err != nil {
		return nil, fmt.Errorf("plan cache: %w", err)
	}
	return &Catalog{src: src, notFound: notFound, cache: cache}, nil
}

// Get returns the plan with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (models.Plan, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}
	v, err, _ := c.group.Do(id, func() (any, error) {
		p, err := c.src.GetByID(ctx, id)
		if err != nil {
			return models.Plan{}, err
		}
		c.cache.Add(id, p)
		return p, nil
	})
	if err != nil {
		if c.notFound != nil && errors.Is(err, c.notFound) {
			return models.Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
		}
		return models.Plan{}, err
	}
	return v.(models.Plan), nil
}

// Clear drops every cached plan.
func (c *Catalog) Clear() {
	c.cache.Purge()
}

// Len returns the number of cached plans.
func (c *Catalog) Len() int {
	return c.cache.Len()
}
