package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/profile"
	"github.com/sells-group/reconcile-cli/internal/recon"
)

var servePort int

// session owns the last computed result. The engine itself is a pure
// function; remembering a result between requests is strictly the host's
// job, and a new run replaces the old result atomically.
type session struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	result    *recon.Result
}

func (s *session) set(id string, r *recon.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = id
	s.startedAt = time.Now().UTC()
	s.result = r
}

func (s *session) get() (string, *recon.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID, s.result, s.result != nil
}

// runFunc executes one reconciliation from a run request. Injected so
// handler tests can stub the engine and filesystem away.
type runFunc func(ctx context.Context, p profile.Profile) (*recon.Result, error)

func executeRun(ctx context.Context, p profile.Profile) (*recon.Result, error) {
	our, provider, err := loadPair(ctx, p.Our.Source, p.Provider.Source, [2]string{p.Our.Sheet, p.Provider.Sheet})
	if err != nil {
		return nil, err
	}
	return recon.Run(p.RunConfig(), our, provider)
}

func newRouter(sess *session, run runFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		var p profile.Profile
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if p.Our.Source == "" || p.Provider.Source == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "our.source and provider.source are required"})
			return
		}

		result, err := run(req.Context(), p)
		if err != nil {
			zap.L().Error("run failed", zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		id := uuid.New().String()
		sess.set(id, result)
		writeJSON(w, http.StatusCreated, map[string]any{
			"run_id":  id,
			"summary": result.Summary,
		})
	})

	r.Get("/api/runs/last", func(w http.ResponseWriter, _ *http.Request) {
		id, result, ok := sess.get()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run yet"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":  id,
			"summary": result.Summary,
		})
	})

	r.Get("/api/runs/last/rows", func(w http.ResponseWriter, req *http.Request) {
		id, result, ok := sess.get()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run yet"})
			return
		}
		view := result.View(req.URL.Query().Get("view") != "all")
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":  id,
			"columns": view.Columns,
			"rows":    view.Rows,
		})
	})

	r.Get("/api/runs/last/export", func(w http.ResponseWriter, req *http.Request) {
		_, result, ok := sess.get()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run yet"})
			return
		}
		view := result.View(req.URL.Query().Get("view") != "all")
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		if err := view.WriteCSV(w); err != nil {
			zap.L().Error("export failed", zap.Error(err))
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation session over HTTP",
	Long: `Starts an HTTP server that runs reconciliations on request and keeps
the last result in memory until the next run replaces it. Nothing is
persisted: restart the server and the session starts empty.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(&session{}, executeRun),
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("session server listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			zap.L().Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (0 = config default)")

	rootCmd.AddCommand(serveCmd)
}
