// Package server exposes refresh results over HTTP for widgets and status bars.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
	"burnpace/internal/log"
	"burnpace/internal/service"
)

// Refresher produces a Summary for now
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (*service.Summary, error)
}

// Server serves the widget feed
type Server struct {
	refresher Refresher
	query     *service.QueryService
	now       func() time.Time
	router    *mux.Router
}

// New creates a server. now defaults to time.Now.
func New(refresher Refresher, query *service.QueryService, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{refresher: refresher, query: query, now: now}

	router := mux.NewRouter()
	router.HandleFunc("/api/summary", s.getSummary).Methods(http.MethodGet)
	router.HandleFunc("/api/weekday/{weekday}", s.getWeekday).Methods(http.MethodGet)
	router.HandleFunc("/api/week", s.getWeek).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	router.Use(logRequests)
	s.router = router

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// servingHandler adds access logging to access and panic recovery around
// the router.
func (s *Server) servingHandler(access io.Writer) http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(access, s.router))
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.servingHandler(os.Stdout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("widget feed listening on %s", addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		log.Debugw("http request", "method", req.Method, "path", req.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) getSummary(w http.ResponseWriter, req *http.Request) {
	summary, err := s.refresher.Refresh(req.Context(), s.now())
	switch {
	case errors.Is(err, health.ErrUnavailable):
		writeError(w, req, http.StatusServiceUnavailable, "health data unavailable")
		return
	case err != nil:
		log.Errorf("refresh failed: %v", err)
		writeError(w, req, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeResponse(w, req, http.StatusOK, summary)
}

func (s *Server) getWeekday(w http.ResponseWriter, req *http.Request) {
	weekday, ok := parseWeekday(mux.Vars(req)["weekday"])
	if !ok {
		writeError(w, req, http.StatusBadRequest, "weekday must be 1-7 or a day name")
		return
	}

	stat, err := s.query.GetWeekday(weekday, s.now())
	if err != nil {
		log.Errorf("reading weekday %v: %v", weekday, err)
		writeError(w, req, http.StatusInternalServerError, "reading weekday failed")
		return
	}
	if stat.Missing {
		writeError(w, req, http.StatusNotFound, "no snapshot for "+stat.Name)
		return
	}
	writeResponse(w, req, http.StatusOK, stat)
}

func (s *Server) getWeek(w http.ResponseWriter, req *http.Request) {
	stats, err := s.query.GetWeekOverview(s.now())
	if err != nil {
		log.Errorf("reading week overview: %v", err)
		writeError(w, req, http.StatusInternalServerError, "reading week failed")
		return
	}
	writeResponse(w, req, http.StatusOK, stats)
}

func (s *Server) getHealth(w http.ResponseWriter, req *http.Request) {
	writeResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

// parseWeekday accepts 1 (Sunday) through 7 or an English day name.
func parseWeekday(v string) (analysis.Weekday, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		wd := analysis.Weekday(n)
		return wd, wd.Valid()
	}
	for wd := analysis.Weekday(1); wd <= 7; wd++ {
		if strings.EqualFold(v, wd.String()) {
			return wd, true
		}
	}
	return 0, false
}
