// Zaparoo Timekeeper
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Timekeeper.
//
// Zaparoo Timekeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Timekeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Timekeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the local HTTP interface for reading the current time
// base, submitting times from trusted clients and changing the timezone.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/timezone"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	RequestTimeout    = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 4 << 10
)

var ErrForceNotLocal = errors.New("force is only accepted from loopback clients")

// TimeBase is the part of the time base the API reads and writes.
type TimeBase interface {
	Status() rtc.Status
	SubmitTime(q rtc.Quality, epoch int64, force bool) rtc.SetResult
	SetLocation(loc *time.Location)
	Location() *time.Location
}

// TimezoneStore persists timezone changes made through the API.
type TimezoneStore interface {
	SetTimezone(tz string)
	Save() error
}

type Options struct {
	TimeBase TimeBase
	// Store may be nil, in which case timezone changes are not persisted.
	Store TimezoneStore
	// Metrics is mounted at /metrics when set.
	Metrics        http.Handler
	Listen         string
	AllowedOrigins []string
	// Clock drives the rate limiter. Nil uses the real clock.
	Clock clockwork.Clock
}

type Server struct {
	tb      TimeBase
	store   TimezoneStore
	limiter *middleware.IPRateLimiter
	handler http.Handler
	srv     *http.Server
	listen  string
}

func NewServer(opts Options) *Server {
	s := &Server{
		tb:      opts.TimeBase,
		store:   opts.Store,
		limiter: middleware.NewIPRateLimiter(opts.Clock),
		listen:  opts.Listen,
	}
	s.handler = s.router(opts)
	return s
}

func (s *Server) router(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)
	r.Use(chimw.Timeout(RequestTimeout))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost*", "http://127.0.0.1*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/time", s.handleGetTime)
		r.Get("/timezone", s.handleGetTimezone)
		r.Group(func(r chi.Router) {
			r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
			r.Post("/time", s.handleSetTime)
			r.With(middleware.LocalOnly).Put("/timezone", s.handleSetTimezone)
		})
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Shutdown or ctx
// is cancelled. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) (net.Addr, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.limiter.StartCleanup(ctx)

	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()

	return ln.Addr(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleGetTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.timeResponse())
}

func (s *Server) timeResponse() models.TimeResponse {
	st := s.tb.Status()
	loc := s.tb.Location()
	resp := models.TimeResponse{
		Quality:  st.Quality,
		Now:      st.Now,
		Local:    st.Local,
		Time:     time.Unix(st.Now, 0).In(loc).Format(time.RFC3339),
		Timezone: loc.String(),
		TZOffset: st.TZOffset,
		Valid:    st.Quality > rtc.QualityNone,
	}
	if st.ExternalSet {
		secs := st.SinceExternalSet.Seconds()
		resp.SinceExternalSet = &secs
	}
	return resp
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var params models.SetTimeParams
	if !decodeBody(w, r, &params) {
		return
	}

	q := rtc.QualityNTP
	if params.Quality != "" {
		// already checked by the validator
		q, _ = rtc.ParseQuality(params.Quality)
	}
	if params.Force && !middleware.IsLoopbackAddr(r.RemoteAddr) {
		writeError(w, http.StatusForbidden, ErrForceNotLocal.Error())
		return
	}

	result := s.tb.SubmitTime(q, params.Time, params.Force)
	st := s.tb.Status()
	log.Info().
		Str("remote", r.RemoteAddr).
		Stringer("quality", q).
		Int64("time", params.Time).
		Bool("force", params.Force).
		Stringer("result", result).
		Msg("time submitted via api")

	writeJSON(w, http.StatusOK, models.SetTimeResponse{
		Result:  result,
		Quality: st.Quality,
		Now:     st.Now,
	})
}

func (s *Server) handleGetTimezone(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.TimezoneResponse{
		Timezone: s.tb.Location().String(),
		TZOffset: s.tb.Status().TZOffset,
	})
}

func (s *Server) handleSetTimezone(w http.ResponseWriter, r *http.Request) {
	var params models.SetTimezoneParams
	if !decodeBody(w, r, &params) {
		return
	}

	loc, err := timezone.Load(params.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.tb.SetLocation(loc)

	if s.store != nil {
		s.store.SetTimezone(params.Timezone)
		if err := s.store.Save(); err != nil {
			log.Error().Err(err).Msg("failed to save timezone")
			writeError(w, http.StatusInternalServerError, "timezone applied but not saved")
			return
		}
	}
	log.Info().Str("timezone", params.Timezone).Msg("timezone updated via api")

	s.handleGetTimezone(w, r)
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := validation.ValidateAndUnmarshal(body, dest); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
