package redtape

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ppiankov/redtape/internal/casefile"
)

// maxCaseBytes bounds the request body Handler will read.
const maxCaseBytes = 1 << 20

// RunRequest is the JSON body Handler accepts: a case fixture plus
// optional scripted turns. A body without the "case" envelope is
// treated as the case fixture itself.
type RunRequest struct {
	Case          json.RawMessage `json:"case"`
	ProviderTurns []string        `json:"provider_turns,omitempty"`
	PayorTurns    []string        `json:"payor_turns,omitempty"`
}

// Handler returns an http.Handler that adjudicates POSTed cases and
// responds with the Result as JSON. Validation failures get a 400,
// engine failures a 500, both with a JSON error body.
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCaseBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}

		var req RunRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		caseData := req.Case
		if len(caseData) == 0 {
			caseData = body
		}

		cf, err := casefile.Parse(caseData)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		var opts []RunOption
		if len(req.ProviderTurns) > 0 || len(req.PayorTurns) > 0 {
			if len(req.ProviderTurns) == 0 || len(req.PayorTurns) == 0 {
				writeJSONError(w, http.StatusBadRequest, "scripted runs need both provider_turns and payor_turns")
				return
			}
			opts = append(opts, RunWithScript(req.ProviderTurns, req.PayorTurns))
		}

		result, err := c.run(r.Context(), cf, opts...)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return
		}
	})
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
