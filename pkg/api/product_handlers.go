package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/prodhub/pkg/catalog"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/products"
)

// ProductHandlers handles products and their modules
type ProductHandlers struct {
	s *Server
}

// NewProductHandlers creates a new ProductHandlers
func NewProductHandlers(s *Server) *ProductHandlers {
	return &ProductHandlers{s: s}
}

// RegisterRoutes registers product routes on the /api/products subrouter
func (h *ProductHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.ListProducts).Methods("GET")
	router.HandleFunc("", h.CreateProduct).Methods("POST")
	router.HandleFunc("/{productId:[0-9]+}", h.GetProduct).Methods("GET")
	router.HandleFunc("/{productId:[0-9]+}", h.UpdateProduct).Methods("PUT")
	router.HandleFunc("/{productId:[0-9]+}", h.DeleteProduct).Methods("DELETE")

	router.HandleFunc("/{productId:[0-9]+}/modules", h.ListProductModules).Methods("GET")
	router.HandleFunc("/{productId:[0-9]+}/modules/{moduleId:[0-9]+}", h.UpdateProductModule).Methods("PUT")
}

// ListProducts lists the products the caller owns or reaches through their role
func (h *ProductHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.s.products.ListAccessibleProducts(r.Context(), principalFrom(r).UserID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// CreateProduct creates a product owned by the caller
func (h *ProductHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req ProductRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product := &products.Product{
		Name:           req.ProductName,
		UserID:         &p.UserID,
		OrganizationID: p.OrganizationID,
	}
	if err := h.s.stores.Products.CreateProduct(r.Context(), product); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("product_id", product.ID).Info("Product created")
	httputil.WriteSuccess(w, product)
}

// GetProduct returns a product the caller can reach
func (h *ProductHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, product)
}

// UpdateProduct renames a product owned by the caller
func (h *ProductHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.ownedProduct(w, r)
	if !ok {
		return
	}

	product.Name = req.ProductName
	if err := h.s.stores.Products.UpdateProduct(r.Context(), product); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, product)
}

// DeleteProduct deletes a product owned by the caller
func (h *ProductHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.ownedProduct(w, r)
	if !ok {
		return
	}

	if err := h.s.stores.Products.DeleteProduct(r.Context(), product.ID); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("product_id", product.ID).Info("Product deleted")
	httputil.WriteMessage(w, "Product deleted successfully")
}

// ListProductModules lists the modules attached to a product
func (h *ProductHandlers) ListProductModules(w http.ResponseWriter, r *http.Request) {
	product, ok := h.s.readableProduct(w, r)
	if !ok {
		return
	}

	modules, err := h.s.stores.Catalog.ListProductModules(r.Context(), product.ID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	if modules == nil {
		modules = []*catalog.ProductModule{}
	}
	httputil.WriteSuccess(w, modules)
}

// UpdateProductModule enables or disables a module of a product and records its completion
func (h *ProductHandlers) UpdateProductModule(w http.ResponseWriter, r *http.Request) {
	moduleID, err := httputil.ParsePathInt64(r, "moduleId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	var req ProductModuleRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	product, ok := h.s.ownedProduct(w, r)
	if !ok {
		return
	}

	pm, err := h.s.stores.Catalog.UpdateProductModule(r.Context(), product.ID, moduleID, req.IsEnabled, req.CompletionPercentage)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, pm)
}

// readableProduct resolves the {productId} path variable to a product the caller owns or
// reaches through their role. It writes the error response itself.
func (s *Server) readableProduct(w http.ResponseWriter, r *http.Request) (*products.Product, bool) {
	productID, err := httputil.ParsePathInt64(r, "productId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}
	product, err := s.products.RequireProductAccess(r.Context(), principalFrom(r).UserID, productID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}
	return product, true
}

// ownedProduct resolves the {productId} path variable to a product the caller owns
func (s *Server) ownedProduct(w http.ResponseWriter, r *http.Request) (*products.Product, bool) {
	productID, err := httputil.ParsePathInt64(r, "productId")
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}
	product, err := s.products.RequireProductOwner(r.Context(), principalFrom(r).UserID, productID)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return nil, false
	}
	return product, true
}
