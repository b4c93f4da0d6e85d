package companion

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-deck/internal/journal"
)

// handleListPresses pages through the press journal.
//
// Query parameters: context, publisher, failed=true, since (RFC 3339),
// limit, offset.
func (s *Server) handleListPresses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{
		Context:   q.Get("context"),
		Publisher: q.Get("publisher"),
	}

	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "failed must be a boolean")
			return
		}
		filter.Failed = failed
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Warn("listing presses failed", "error", err)
		writeInternalError(w, "listing presses failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetPress returns one journal entry.
func (s *Server) handleGetPress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := s.journal.Get(r.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		writeNotFound(w, "press not found")
		return
	}
	if err != nil {
		s.logger.Warn("getting press failed", "id", id, "error", err)
		writeInternalError(w, "getting press failed")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
