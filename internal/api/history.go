package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/history"
)

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "ask history is not enabled", false, nil)
		return
	}
	if err := auth.RequireRole(r.Context(), auth.RoleOperator); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	filter := history.ListFilter{
		Outcome: strings.TrimSpace(r.URL.Query().Get("outcome")),
		Surface: strings.TrimSpace(r.URL.Query().Get("surface")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, map[string]any{"limit": raw})
			return
		}
		filter.Limit = limit
	}
	filter.Limit = history.NormalizeLimit(filter.Limit)

	entries, err := deps.History.List(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_ERROR", "failed to list ask history", true, map[string]any{"details": err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "limit": filter.Limit})
}
