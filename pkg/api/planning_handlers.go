package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/hypothesis"
)

// PlanningHandlers handles a product's backlog and hypothesis documents
type PlanningHandlers struct {
	s *Server
}

// NewPlanningHandlers creates a new PlanningHandlers
func NewPlanningHandlers(s *Server) *PlanningHandlers {
	return &PlanningHandlers{s: s}
}

// RegisterRoutes registers backlog and hypothesis routes on the /api/products subrouter
func (h *PlanningHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/{productId:[0-9]+}/backlog", h.GetBacklog).Methods("GET")
	router.HandleFunc("/{productId:[0-9]+}/backlog", h.SaveBacklog).Methods("POST")
	router.HandleFunc("/{productId:[0-9]+}/hypothesis", h.GetHypothesis).Methods("GET")
	router.HandleFunc("/{productId:[0-9]+}/hypothesis", h.SaveHypothesis).Methods("POST")
}

// GetBacklog returns the product's backlog, or 404 when none was saved
func (h *PlanningHandlers) GetBacklog(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	b, err := h.s.stores.Backlogs.GetBacklog(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, b)
}

// SaveBacklog replaces the product's backlog
func (h *PlanningHandlers) SaveBacklog(w http.ResponseWriter, r *http.Request) {
	var req BacklogRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	b, err := h.s.stores.Backlogs.SaveBacklog(r.Context(), product.ID, req.Epics)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, b)
}

// GetHypothesis returns the product's hypothesis. A product without one gets an empty
// document carrying only the product id.
func (h *PlanningHandlers) GetHypothesis(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	doc, err := h.s.stores.Hypotheses.GetHypothesis(r.Context(), product.ID)
	if apperrors.IsNotFound(err) {
		httputil.WriteSuccess(w, struct {
			ProductID int64 `json:"productId"`
		}{product.ID})
		return
	}
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}

// SaveHypothesis replaces the product's hypothesis
func (h *PlanningHandlers) SaveHypothesis(w http.ResponseWriter, r *http.Request) {
	var req HypothesisRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	doc := &hypothesis.Hypothesis{
		ProductID:           product.ID,
		HypothesisStatement: req.HypothesisStatement,
		SuccessMetrics:      req.SuccessMetrics,
		Assumptions:         req.Assumptions,
		Initiatives:         req.Initiatives,
		Themes:              req.Themes,
	}
	if err := h.s.stores.Hypotheses.SaveHypothesis(r.Context(), doc); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}
