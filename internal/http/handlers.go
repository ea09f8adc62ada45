package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/log"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return
	}

	t, err := req.toCore()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.svc.Save(r.Context(), t)
	if err != nil {
		writeInternal(w, r, log.OpCreate, err)
		return
	}
	s.ops.WithLabelValues(log.OpCreate).Inc()
	writeJSON(w, r, http.StatusOK, newTransactionResponse(saved))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ts, err := s.svc.All(r.Context())
	if err != nil {
		writeInternal(w, r, log.OpList, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionList(ts))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		writeInternal(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSummaryResponse(summary))
}

// handleDelete answers 200 whether or not the id existed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id must be an integer")
		return
	}

	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeInternal(w, r, log.OpDelete, err)
		return
	}
	s.ops.WithLabelValues(log.OpDelete).Inc()
	w.WriteHeader(http.StatusOK)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
