package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jhsoft/ws02-gateway/src/internal/assembler"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
)

const maxInvokeBody = 1 << 20

// Invoke calls one API.
// GET  /api/v1/invoke/{code}?name=value
// POST /api/v1/invoke/{code} with a flat JSON object; body values override the query.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	input, err := invokeParams(w, r)
	if err != nil {
		WriteInvalidRequest(w, err.Error())
		return
	}

	res, err := h.invoker.Dispatch(r.Context(), gateway.Request{
		Code:     code,
		Params:   input,
		CallerIP: CallerIPFrom(r.Context()),
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	rows := res.Nodes
	if rows == nil {
		rows = []*assembler.Node{}
	}
	writeJSONData(w, InvokeResponse{
		Code:      res.Code,
		RequestID: res.RequestID,
		Host:      res.Host.Code,
		RowCount:  res.Rows,
		Rows:      rows,
	})
}

func invokeParams(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	input := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			input[name] = values[0]
		}
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return input, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxInvokeBody)
	var body map[string]interface{}
	if err := decodeJSON(r, &body); err != nil {
		if stderrors.Is(err, io.EOF) {
			return input, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %v", err)
	}

	for name, raw := range body {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			input[name] = v
		case json.Number:
			input[name] = v.String()
		case bool:
			input[name] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("parameter %q must be a scalar", name)
		}
	}
	return input, nil
}
