package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var logger = log.Named("api")

// Invoker runs one API call through the pipeline.
type Invoker interface {
	Dispatch(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// Catalog exposes the configured API definitions.
type Catalog interface {
	domain.ConfigStore
	ListCodes(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// StatementSource reports which syntax keys have statement text.
type StatementSource interface {
	Lookup(key string) (string, bool)
	Len() int
}

// Handler manages all API endpoints and dependencies.
type Handler struct {
	invoker    Invoker
	catalog    Catalog
	statements StatementSource
	executors  []string
	hosts      []string
	version    VersionInfo
}

// HandlerOptions carries the informational parts of the status endpoint.
type HandlerOptions struct {
	Executors []string
	Hosts     []string
	Version   VersionInfo
}

// NewHandler creates a new API handler.
func NewHandler(invoker Invoker, catalog Catalog, statements StatementSource, opts HandlerOptions) *Handler {
	return &Handler{
		invoker:    invoker,
		catalog:    catalog,
		statements: statements,
		executors:  opts.Executors,
		hosts:      opts.Hosts,
		version:    opts.Version,
	}
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(DataResponse{Data: data}); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// decodeJSON decodes JSON from the request body.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
