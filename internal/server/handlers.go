package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/objones25/mnemo/internal/memory"
	"github.com/objones25/mnemo/internal/rag"
	"github.com/objones25/mnemo/internal/temporal"
	merr "github.com/objones25/mnemo/pkg/errors"
)

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content          string   `json:"content"`
		Domain           string   `json:"domain"`
		Source           string   `json:"source"`
		Tags             []string `json:"tags"`
		Importance       *float32 `json:"importance"`
		TTLSeconds       int64    `json:"ttl_seconds"`
		ContentAddressed *bool    `json:"content_addressed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Content == "" {
		badRequest(w, "content required")
		return
	}

	e := memory.NewEntry(req.Content, memory.ParseDomain(req.Domain))
	if req.ContentAddressed != nil && !*req.ContentAddressed {
		e = e.WithID(memory.NewID())
	}
	if req.Source != "" {
		e = e.WithSource(req.Source)
	}
	if len(req.Tags) > 0 {
		e = e.WithTags(req.Tags...)
	}
	if req.Importance != nil {
		e = e.WithImportance(*req.Importance)
	}
	if req.TTLSeconds > 0 {
		e = e.WithTTL(time.Duration(req.TTLSeconds) * time.Second)
	}

	id, err := s.store.Store(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         id,
		"created_at": e.CreatedAt,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := memory.ID(chi.URLParam(r, "id"))

	e, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if e.IsExpired() {
		writeError(w, merr.New(merr.CodeEntryExpired, "context entry expired",
			merr.FieldEntryID(string(id))))
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := memory.ID(chi.URLParam(r, "id"))

	found, err := s.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": found})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text          string   `json:"text"`
		Domain        *string  `json:"domain"`
		Tags          []string `json:"tags"`
		Source        string   `json:"source"`
		MinImportance *float32 `json:"min_importance"`
		MaxAgeSeconds *int64   `json:"max_age_seconds"`
		VerifiedOnly  bool     `json:"verified_only"`
		Limit         *int     `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	q := memory.NewQuery()
	if req.Text != "" {
		q = q.WithText(req.Text)
	}
	if req.Domain != nil {
		q = q.WithDomain(memory.ParseDomain(*req.Domain))
	}
	if req.Tags != nil {
		q = q.WithTags(req.Tags...)
	}
	if req.Source != "" {
		q = q.WithSource(req.Source)
	}
	if req.MinImportance != nil {
		q = q.WithMinImportance(*req.MinImportance)
	}
	if req.MaxAgeSeconds != nil {
		q = q.WithMaxAge(*req.MaxAgeSeconds)
	}
	if req.VerifiedOnly {
		q = q.WithVerifiedOnly()
	}
	if req.Limit != nil {
		q = q.WithLimit(*req.Limit)
	}

	entries, err := s.store.Query(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "retrieval not available",
		})
		return
	}

	q := rag.NewQuery()
	if err := json.NewDecoder(r.Body).Decode(q); err != nil {
		badRequest(w, "invalid json")
		return
	}

	res, err := s.processor.Retrieve(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScreening(w http.ResponseWriter, r *http.Request) {
	id := memory.ID(chi.URLParam(r, "id"))

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	status, err := memory.ParseScreeningStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	e.Metadata.Screening = status
	if _, err := s.store.Store(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":               e.ID,
		"screening_status": status,
	})
}

func (s *Server) handleTemporalStats(w http.ResponseWriter, r *http.Request) {
	entries := s.store.MemoryEntries()
	if raw := r.URL.Query().Get("domain"); raw != "" {
		domain := memory.ParseDomain(raw)
		kept := entries[:0]
		for _, e := range entries {
			if e.Domain == domain {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	writeJSON(w, http.StatusOK, temporal.StatsFrom(entries))
}

func (s *Server) handleStorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.CleanupExpired(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
