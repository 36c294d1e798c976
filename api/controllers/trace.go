package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/internal/trace"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
)

// TraceScan resolves a scanned RM or FP code into its genealogy.
func TraceScan(svc trace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Scan(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
