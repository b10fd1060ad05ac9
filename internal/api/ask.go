package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/store"
	"github.com/godeye/godeye/internal/summarize"
)

type askRequest struct {
	Question   string        `json:"question"`
	Connection *store.Params `json:"connection"`
}

type askResponse struct {
	assistant.Answer
	Table string `json:"table_markdown,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "assistant dependency is not configured", false, nil)
		return
	}
	if err := auth.RequireRole(r.Context(), auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "Please ask a valid question.", false, nil)
		return
	}
	if !authorizeOverride(w, r, request.Connection) {
		return
	}

	answer := deps.Assistant.Ask(r.Context(), assistant.Request{
		Question: request.Question,
		Override: request.Connection,
		Surface:  assistant.SurfaceWeb,
	})
	response := askResponse{Answer: answer}
	if len(answer.Records) > 0 {
		response.Table = summarize.MarkdownTable(query.Result{Columns: answer.Columns, Records: answer.Records}, deps.TableRows)
	}
	writeJSON(w, http.StatusOK, response)
}

// authorizeOverride rejects malformed overrides and those sent without the operator role.
func authorizeOverride(w http.ResponseWriter, r *http.Request, override *store.Params) bool {
	if override == nil {
		return true
	}
	if err := auth.RequireRole(r.Context(), auth.RoleOperator); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "connection overrides require the operator role", false, nil)
		return false
	}
	if override.Driver != "" && override.Driver != store.DriverPostgres && override.Driver != store.DriverDuckDB {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONNECTION", "unsupported driver", false, map[string]any{"driver": override.Driver})
		return false
	}
	return true
}
