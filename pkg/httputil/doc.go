// Package httputil provides HTTP utilities shared by every handler.
//
// # Overview
//
// Handlers decode input with DecodeAndValidate, call a service, and either write the
// result with WriteSuccess/WriteCreated or hand the error to WriteAppError, which maps
// the apperrors kind to a status code:
//
//	func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
//	    var req TeamRequest
//	    if err := httputil.DecodeAndValidate(r, &req); err != nil {
//	        httputil.WriteAppError(w, r, err)
//	        return
//	    }
//	    team, err := h.teams.Create(r.Context(), productID, req.Name, req.Description)
//	    if err != nil {
//	        httputil.WriteAppError(w, r, err)
//	        return
//	    }
//	    httputil.WriteCreated(w, team)
//	}
//
// # Error Format
//
//	{"error": "Team name already exists for this product", "message": "duplicate_resource"}
//
// Unclassified errors are logged and rendered as {"error": "internal server error"}.
//
// # Validation
//
// Request structs use go-playground/validator tags. Error details are keyed by JSON
// field name.
//
// # Middleware
//
//	handler := httputil.Chain(
//	    httputil.RequestIDMiddleware,
//	    httputil.LoggingMiddleware(logger),
//	    httputil.RecoveryMiddleware(logger),
//	    httputil.CORSMiddleware(origins),
//	    httputil.MaxBytesMiddleware(1 << 20),
//	)(router)
package httputil
