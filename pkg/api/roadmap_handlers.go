package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/roadmap"
)

// RoadmapHandlers handles quarterly roadmaps. Reads are enriched with effort ratings computed
// from the quarter's capacity plan and with backlog themes.
type RoadmapHandlers struct {
	s *Server
}

// NewRoadmapHandlers creates a new RoadmapHandlers
func NewRoadmapHandlers(s *Server) *RoadmapHandlers {
	return &RoadmapHandlers{s: s}
}

// RegisterRoutes registers roadmap routes on the /api/products subrouter
func (h *RoadmapHandlers) RegisterRoutes(router *mux.Router) {
	const base = "/{productId:[0-9]+}/roadmap"

	router.HandleFunc(base, h.ListRoadmaps).Methods("GET")
	router.HandleFunc(base, h.SaveRoadmap).Methods("POST")
	router.HandleFunc(base+"/years", h.ListYears).Methods("GET")
	router.HandleFunc(base+"/years/{year:[0-9]+}/quarters", h.ListQuarters).Methods("GET")
	router.HandleFunc(base+"/assigned-epics", h.AssignedEpics).Methods("GET")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.GetRoadmap).Methods("GET")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.SaveRoadmap).Methods("POST")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.DeleteRoadmap).Methods("DELETE")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}/epics/{epicId}/effort-rating", h.UpdateEffortRating).Methods("PUT")
}

// RegisterV2Routes registers the roadmap routes served under /api/v2/products
func (h *RoadmapHandlers) RegisterV2Routes(router *mux.Router) {
	const base = "/{productId:[0-9]+}/roadmap"

	router.HandleFunc(base, h.SaveRoadmap).Methods("POST")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}", h.GetRoadmap).Methods("GET")
	router.HandleFunc(base+"/{year:[0-9]+}/{quarter:[0-9]+}/epics/{epicId}/effort-rating", h.UpdateEffortRating).Methods("PUT")
}

// ListRoadmaps lists every roadmap of the product
func (h *RoadmapHandlers) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	list, err := h.s.stores.Roadmaps.ListRoadmaps(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if list == nil {
		list = []*roadmap.Roadmap{}
	}
	if err := h.s.enricher.EnrichAll(r.Context(), list); err != nil {
		h.logEnrichFailure(r, err)
	}
	httputil.WriteSuccess(w, list)
}

// GetRoadmap returns one quarter's roadmap
func (h *RoadmapHandlers) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	year, quarter, err := parsePeriod(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	rm, err := h.s.stores.Roadmaps.GetRoadmap(r.Context(), product.ID, year, quarter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if err := h.s.enricher.Enrich(r.Context(), rm); err != nil {
		h.logEnrichFailure(r, err)
	}
	httputil.WriteSuccess(w, rm)
}

// SaveRoadmap creates or replaces a quarter's roadmap. Epics already scheduled in another
// quarter of the product are rejected with 409 and nothing is written.
func (h *RoadmapHandlers) SaveRoadmap(w http.ResponseWriter, r *http.Request) {
	var req RoadmapRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if _, ok := mux.Vars(r)["year"]; ok {
		year, quarter, err := parsePeriod(r)
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}
		req.Year, req.Quarter = year, quarter
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	rm, err := h.s.stores.Roadmaps.SaveRoadmap(r.Context(), product.ID, req.Year, req.Quarter, req.RoadmapItems)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithFields(map[string]interface{}{
			"product_id": product.ID,
			"year":       rm.Year,
			"quarter":    rm.Quarter,
			"items":      len(rm.Items),
		}).
		Info("Roadmap saved")
	if err := h.s.enricher.Enrich(r.Context(), rm); err != nil {
		h.logEnrichFailure(r, err)
	}
	httputil.WriteSuccess(w, rm)
}

// DeleteRoadmap deletes one quarter's roadmap
func (h *RoadmapHandlers) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	year, quarter, err := parsePeriod(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	if err := h.s.stores.Roadmaps.DeleteRoadmap(r.Context(), product.ID, year, quarter); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListYears lists the years that have a roadmap
func (h *RoadmapHandlers) ListYears(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	years, err := h.s.stores.Roadmaps.ListYears(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, nonNilInts(years))
}

// ListQuarters lists the quarters of a year that have a roadmap
func (h *RoadmapHandlers) ListQuarters(w http.ResponseWriter, r *http.Request) {
	year, err := httputil.ParsePathInt(r, "year")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	quarters, err := h.s.stores.Roadmaps.ListQuarters(r.Context(), product.ID, year)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, nonNilInts(quarters))
}

// AssignedEpics lists the epic ids scheduled in any quarter, optionally ignoring the quarter
// named by excludeYear and excludeQuarter
func (h *RoadmapHandlers) AssignedEpics(w http.ResponseWriter, r *http.Request) {
	excludeYear, hasYear, err := httputil.ParseQueryInt(r, "excludeYear")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	excludeQuarter, hasQuarter, err := httputil.ParseQueryInt(r, "excludeQuarter")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	var exclude *roadmap.Period
	if hasYear && hasQuarter {
		exclude = &roadmap.Period{Year: excludeYear, Quarter: excludeQuarter}
	}
	ids, err := h.s.stores.Roadmaps.AssignedEpicIDs(r.Context(), product.ID, exclude)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httputil.WriteSuccess(w, ids)
}

// UpdateEffortRating sets or clears the stored effort rating of one roadmap item
func (h *RoadmapHandlers) UpdateEffortRating(w http.ResponseWriter, r *http.Request) {
	year, quarter, err := parsePeriod(r)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	epicID, err := httputil.ParsePathString(r, "epicId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req EffortRatingRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	err = h.s.stores.Roadmaps.UpdateEffortRating(r.Context(), product.ID, year, quarter, epicID, req.EffortRating)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *RoadmapHandlers) logEnrichFailure(r *http.Request, err error) {
	observability.FromContext(r.Context()).
		WithError(err).
		Warn("Failed to enrich roadmap, serving stored values")
}

// parsePeriod reads the {year} and {quarter} path variables
func parsePeriod(r *http.Request) (int, int, error) {
	year, err := httputil.ParsePathInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	quarter, err := httputil.ParsePathInt(r, "quarter")
	if err != nil {
		return 0, 0, err
	}
	if err := roadmap.ValidatePeriod(year, quarter); err != nil {
		return 0, 0, err
	}
	return year, quarter, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
