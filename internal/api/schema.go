package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/store"
)

type connectionRequest struct {
	Connection *store.Params `json:"connection"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "assistant dependency is not configured", false, nil)
		return
	}
	if err := auth.RequireRole(r.Context(), auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	params := deps.Assistant.Params(nil)
	snapshot, err := deps.Assistant.Describe(r.Context(), nil)
	if err != nil {
		if store.IsConnectionError(err) {
			writeError(r.Context(), w, http.StatusBadGateway, "STORE_UNREACHABLE", err.Error(), true, map[string]any{"target": params.Target()})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target":    params.Target(),
		"namespace": params.Namespace,
		"schema":    snapshot,
	})
}

func handleConnectionTest(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CONNECTION_TEST_NOT_CONFIGURED", "assistant dependency is not configured", false, nil)
		return
	}
	if err := auth.RequireRole(r.Context(), auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request connectionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid connection test body", false, map[string]any{"details": err.Error()})
		return
	}
	if !authorizeOverride(w, r, request.Connection) {
		return
	}

	params := deps.Assistant.Params(request.Connection)
	if err := params.Validate(); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONNECTION", err.Error(), false, nil)
		return
	}
	if err := deps.Assistant.TestConnection(r.Context(), request.Connection); err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "STORE_UNREACHABLE", err.Error(), true, map[string]any{"target": params.Target()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "connected",
		"target":  params.Target(),
		"message": "Connection successful!",
	})
}
