package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListAPIs returns every configured API code.
// GET /api/v1/apis
func (h *Handler) ListAPIs(w http.ResponseWriter, r *http.Request) {
	codes, err := h.catalog.ListCodes(r.Context())
	if err != nil {
		logger.Errorf("Failed to list api codes: %v", err)
		WriteInternalError(w, "failed to list api codes")
		return
	}
	if codes == nil {
		codes = []string{}
	}
	writeJSONData(w, APIListResponse{Codes: codes})
}

// DescribeAPI returns the resolved definition of one code.
// GET /api/v1/apis/{code}
func (h *Handler) DescribeAPI(w http.ResponseWriter, r *http.Request) {
	def, err := h.catalog.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		logger.Warnf("Describe %s: %v", chi.URLParam(r, "code"), err)
		WriteDomainError(w, err)
		return
	}

	defined := false
	if h.statements != nil {
		_, defined = h.statements.Lookup(def.SyntaxKey)
	}
	writeJSONData(w, describe(def, defined))
}
