package roadmap

import (
	"context"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/backlog"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"golang.org/x/sync/errgroup"
)

// PlanSource provides the capacity data used to rate epics
type PlanSource interface {
	FindPlan(ctx context.Context, productID int64, year, quarter int) (*capacity.Plan, error)
	ListRatingConfigs(ctx context.Context, productID int64) ([]capacity.RatingConfig, error)
}

// EpicSource provides backlog epics keyed by id
type EpicSource interface {
	EpicsByID(ctx context.Context, productID int64) (map[string]backlog.Epic, error)
}

// Enricher decorates stored roadmap items with derived effort ratings and backlog themes
type Enricher struct {
	plans PlanSource
	epics EpicSource
}

// NewEnricher creates a new Enricher
func NewEnricher(plans PlanSource, epics EpicSource) *Enricher {
	return &Enricher{plans: plans, epics: epics}
}

// Enrich loads the quarter's capacity plan, the rating configs and the backlog concurrently
// and applies them to rm in place
func (e *Enricher) Enrich(ctx context.Context, rm *Roadmap) error {
	if rm == nil || len(rm.Items) == 0 {
		return nil
	}

	var (
		plan    *capacity.Plan
		configs []capacity.RatingConfig
		epics   map[string]backlog.Epic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.plans.FindPlan(gctx, rm.ProductID, rm.Year, rm.Quarter)
		if apperrors.IsNotFound(err) {
			return nil
		}
		plan = p
		return err
	})
	g.Go(func() error {
		var err error
		configs, err = e.plans.ListRatingConfigs(gctx, rm.ProductID)
		return err
	})
	g.Go(func() error {
		var err error
		epics, err = e.epics.EpicsByID(gctx, rm.ProductID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	Apply(rm, capacity.Ratings(plan, configs), epics)
	return nil
}

// EnrichAll enriches each roadmap in turn, stopping at the first error
func (e *Enricher) EnrichAll(ctx context.Context, roadmaps []*Roadmap) error {
	for _, rm := range roadmaps {
		if err := e.Enrich(ctx, rm); err != nil {
			return err
		}
	}
	return nil
}

// Apply overrides each item's effort rating with the derived rating when one exists, and
// fills missing initiative and theme fields from the matching backlog epic
func Apply(rm *Roadmap, ratings map[string]int, epics map[string]backlog.Epic) {
	for i := range rm.Items {
		item := &rm.Items[i]

		if r, ok := ratings[item.EpicID]; ok && r > 0 {
			rating := r
			item.EffortRating = &rating
		}

		if item.InitiativeName != nil && item.ThemeName != nil {
			continue
		}
		epic, ok := epics[item.EpicID]
		if !ok {
			continue
		}
		if item.InitiativeName == nil {
			item.InitiativeName = epic.InitiativeName
		}
		if item.ThemeName == nil {
			item.ThemeName = epic.ThemeName
		}
		if item.ThemeColor == nil {
			item.ThemeColor = epic.ThemeColor
		}
	}
}
