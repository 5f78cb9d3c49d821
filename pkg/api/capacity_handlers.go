package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/capacity"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"golang.org/x/sync/errgroup"
)

// CapacityHandlers handles teams, quarterly capacity plans and effort rating configs
type CapacityHandlers struct {
	s *Server
}

// NewCapacityHandlers creates a new CapacityHandlers
func NewCapacityHandlers(s *Server) *CapacityHandlers {
	return &CapacityHandlers{s: s}
}

// RegisterRoutes registers capacity planning routes on the /api/products subrouter
func (h *CapacityHandlers) RegisterRoutes(router *mux.Router) {
	const base = "/{productId:[0-9]+}/capacity-planning"

	router.HandleFunc(base+"/teams", h.ListTeams).Methods("GET")
	router.HandleFunc(base+"/teams", h.CreateTeam).Methods("POST")
	router.HandleFunc(base+"/teams/{teamId:[0-9]+}", h.UpdateTeam).Methods("PUT")
	router.HandleFunc(base+"/teams/{teamId:[0-9]+}", h.DeleteTeam).Methods("DELETE")

	router.HandleFunc(base+"/effort-rating-configs", h.ListRatingConfigs).Methods("GET")
	router.HandleFunc(base+"/effort-rating-configs", h.SaveRatingConfig).Methods("PUT")

	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.GetPlan).Methods("GET")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.SavePlan).Methods("POST")
}

// ListTeams lists the product's active teams
func (h *CapacityHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	teams, err := h.s.stores.Capacity.ListTeams(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, teams)
}

// CreateTeam adds a team to the product
func (h *CapacityHandlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	team := &capacity.Team{
		ProductID:   product.ID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.s.stores.Capacity.CreateTeam(r.Context(), team); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, team)
}

// UpdateTeam renames a team of the product
func (h *CapacityHandlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.ParsePathInt64(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req TeamRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	team, err := h.s.stores.Capacity.GetTeam(r.Context(), product.ID, teamID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	team.Name = req.Name
	team.Description = req.Description
	if err := h.s.stores.Capacity.UpdateTeam(r.Context(), team); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, team)
}

// DeleteTeam deactivates a team; its past efforts are kept
func (h *CapacityHandlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.ParsePathInt64(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	if err := h.s.stores.Capacity.DeactivateTeam(r.Context(), product.ID, teamID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Team deleted successfully")
}

// GetPlan returns the quarter's capacity plan with the product's teams. The first read of a
// quarter creates the plan seeded with the epics of that quarter's roadmap.
func (h *CapacityHandlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	year, quarter, err := parsePeriod(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	seed := func(ctx context.Context) ([]capacity.EpicRef, error) {
		return h.s.stores.Roadmaps.RoadmapEpics(ctx, product.ID, year, quarter)
	}

	var (
		plan  *capacity.Plan
		teams []*capacity.Team
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		plan, err = h.s.stores.Capacity.GetOrSeedPlan(gctx, product.ID, year, quarter, seed)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = h.s.stores.Capacity.ListTeams(gctx, product.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	plan.Teams = teams
	httputil.WriteSuccess(w, plan)
}

// SavePlan upserts the quarter's plan and its epic efforts
func (h *CapacityHandlers) SavePlan(w http.ResponseWriter, r *http.Request) {
	year, quarter, err := parsePeriod(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req CapacityPlanRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	plan, err := h.s.stores.Capacity.SavePlan(r.Context(), product.ID, year, quarter, req.EffortUnit, req.EpicEfforts)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithFields(map[string]interface{}{
			"product_id": product.ID,
			"plan_id":    plan.ID,
			"efforts":    len(plan.EpicEfforts),
		}).
		Info("Capacity plan saved")
	httputil.WriteMessage(w, "Capacity plan saved successfully")
}

// ListRatingConfigs lists the product's effort rating thresholds
func (h *CapacityHandlers) ListRatingConfigs(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	configs, err := h.s.stores.Capacity.ListRatingConfigs(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if configs == nil {
		configs = []capacity.RatingConfig{}
	}
	httputil.WriteSuccess(w, configs)
}

// SaveRatingConfig creates or replaces the thresholds for one effort unit
func (h *CapacityHandlers) SaveRatingConfig(w http.ResponseWriter, r *http.Request) {
	var cfg capacity.RatingConfig
	if err := httputil.DecodeAndValidate(r, &cfg); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	cfg.ProductID = product.ID
	if err := h.s.stores.Capacity.UpsertRatingConfig(r.Context(), &cfg); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, cfg)
}
