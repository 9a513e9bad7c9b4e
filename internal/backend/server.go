/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend serves the section API, the client-facing read-only preview
// and operational endpoints over HTTP.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/render"
	"proposalcanvas/internal/storage"
	"proposalcanvas/internal/version"
)

// MaxBodyBytes caps section payloads; image data URLs make them large.
const MaxBodyBytes = 32 << 20

// Config holds server configuration.
type Config struct {
	Addr string // http bind address, e.g. ":8080"
	// AuthSecret enables bearer tokens on mutating routes when non-empty.
	AuthSecret string
	// DevTokens exposes POST /api/auth/token, which signs tokens for anyone.
	DevTokens bool
}

// Server wires the HTTP routes to a store and a saver.
type Server struct {
	cfg      Config
	store    storage.SectionStore
	saver    *autosave.Saver
	gatherer prometheus.Gatherer
	log      *slog.Logger
	mux      *http.ServeMux
}

// NewServer builds the route table. A nil gatherer serves the default registry.
func NewServer(cfg Config, store storage.SectionStore, saver *autosave.Saver, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if saver == nil {
		saver = autosave.New(store)
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		saver:    saver,
		gatherer: gatherer,
		log:      applog.WithComponent("backend"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	m := s.mux
	m.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	m.HandleFunc("GET /readyz", s.handleReady)
	m.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	m.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	m.HandleFunc("POST /api/auth/token", s.handleToken)

	m.HandleFunc("GET /api/sections/{id}", s.handleGetSection)
	m.HandleFunc("PUT /api/sections/{id}", s.withAuth(s.handlePutSection))
	m.HandleFunc("DELETE /api/sections/{id}", s.withAuth(s.handleDeleteSection))
	m.HandleFunc("GET /api/proposals/{id}/sections", s.handleListSections)
	m.HandleFunc("POST /api/proposals/{id}/sections", s.withAuth(s.handleCreateSection))
	m.HandleFunc("PUT /api/proposals/{id}/sections/order", s.withAuth(s.handleReorder))

	m.HandleFunc("GET /preview/sections/{id}", s.handlePreview)
	m.HandleFunc("GET /preview/sections/{id}/thumbnail.png", s.handleThumbnail)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// Pending saves finish before the process exits.
	return s.saver.Wait(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)))
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	sec, err := s.store.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// SectionUpdate is the body of PUT /api/sections/{id}.
type SectionUpdate struct {
	Elements json.RawMessage `json:"elements"`
	Title    *string         `json:"title,omitempty"`
}

// parseElements decodes and validates an element list strictly: unknown
// kinds, bad sizes and duplicate ids are rejected instead of repaired.
func parseElements(raw json.RawMessage) ([]domain.Element, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New("elements are required")
	}
	els, err := domain.DecodeElements(raw)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(els))
	var errs []error
	for _, el := range els {
		if err := el.Validate(); err != nil {
			errs = append(errs, err)
		}
		if el.ID == "" || seen[el.ID] {
			errs = append(errs, fmt.Errorf("element id %q is empty or repeated", el.ID))
		}
		seen[el.ID] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return els, nil
}

func (s *Server) handlePutSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body SectionUpdate
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	els, err := parseElements(body.Elements)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.saver.Save(applog.ContextWithSection(r.Context(), "", id), id, autosave.Snapshot{Elements: els, Title: body.Title}); err != nil {
		s.storeError(w, err)
		return
	}
	sec, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if len(strings.TrimSpace(string(b))) > 0 {
		if err := json.Unmarshal(b, &body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
	}
	sec, err := s.store.Create(r.Context(), domain.Section{ProposalID: r.PathValue("id"), Title: body.Title})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.store.Reorder(r.Context(), r.PathValue("id"), body.IDs); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// previewElements loads a section for display, repairing what the viewer
// cannot show as is.
func (s *Server) previewElements(ctx context.Context, id string) (domain.Section, error) {
	sec, err := s.store.Load(ctx, id)
	if err != nil {
		return domain.Section{}, err
	}
	b := geometry.NewBoard(geometry.UUIDGenerator{})
	b.Load(sec.Elements)
	sec.Elements = b.Elements()
	return sec, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sec, err := s.previewElements(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Document(w, sec.Title, sec.Elements); err != nil {
		s.log.WarnContext(applog.ContextWithSection(r.Context(), sec.ProposalID, sec.ID), "preview write failed", slog.Any("err", err))
	}
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	sec, err := s.previewElements(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	opt := render.ThumbnailOptions{Width: 160, Labels: r.URL.Query().Get("labels") != "false"}
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 2048 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("width must be between 16 and 2048"))
			return
		}
		opt.Width = n
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := render.Thumbnail(w, sec.Elements, opt); err != nil {
		s.log.WarnContext(applog.ContextWithSection(r.Context(), sec.ProposalID, sec.ID), "thumbnail write failed", slog.Any("err", err))
	}
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrInvalidOrder), errors.Is(err, storage.ErrMissingID), errors.Is(err, storage.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.log.Error("store error", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
