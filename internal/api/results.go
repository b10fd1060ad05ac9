package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/godeye/godeye/internal/archive"
	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/storage"
)

func handleResultDownload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "result archive is not enabled", false, nil)
		return
	}
	if err := auth.RequireRole(r.Context(), auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	key := r.PathValue("key")
	if !storage.IsResultKey(key) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_RESULT_KEY", "not an archived result key", false, map[string]any{"key": key})
		return
	}

	info, err := deps.Archive.Stat(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, key, err)
		return
	}
	body, err := deps.Archive.Get(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, key, err)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "result download interrupted", "key", key, "error", err)
	}
}

func writeArchiveError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "RESULT_NOT_FOUND", "archived result was not found", false, map[string]any{"key": key})
		return
	}
	writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_ERROR", "failed to read archived result", true, map[string]any{"details": err.Error()})
}
