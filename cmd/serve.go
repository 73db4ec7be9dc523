package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var servePort int

// shutdownTimeout bounds how long in-flight requests may drain after a stop
// signal.
const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP intake API",
	Long:  "Accepts lead files over HTTP and runs the import pipeline on them. Runs are recorded in the store like CLI imports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrapf(err, "listen on port %d", port)
		}

		srv := &http.Server{
			Handler:     newRouter(st),
			ReadTimeout: 60 * time.Second,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveHTTP(ctx, srv, ln)
	},
}

// serveHTTP runs srv on ln until ctx is cancelled, then drains in-flight
// requests. The shutdown deadline is fresh: the cancelled ctx must not cut
// the drain short.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown incomplete", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	<-stopped
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP API. Separated from the command so handler tests
// can drive it directly.
func newRouter(st store.Store) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", handleProcess(st))
		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{runID}", handleGetRun(st))
	})

	return r
}

type processResponse struct {
	RunID   string        `json:"run_id"`
	Summary model.Summary `json:"summary"`
}

// handleProcess accepts lead files as the multipart field "files", runs the
// import pipeline over them, and returns the run summary.
func handleProcess(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		uploads := r.MultipartForm.File["files"]
		if len(uploads) == 0 {
			writeJSONError(w, http.StatusBadRequest, `no files supplied (use multipart field "files")`)
			return
		}

		// Uploads keep their base names: the pipeline labels each lead with
		// its source file.
		dir, err := os.MkdirTemp("", "leadgen-intake-*")
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "could not stage uploads")
			return
		}
		defer os.RemoveAll(dir)

		files := make([]string, 0, len(uploads))
		for _, fh := range uploads {
			dst := filepath.Join(dir, filepath.Base(fh.Filename))
			if err := saveUpload(fh, dst); err != nil {
				zap.L().Error("serve: staging upload failed", zap.String("file", fh.Filename), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "could not stage uploads")
				return
			}
			files = append(files, dst)
		}

		res, err := pipeline.New(st).Run(r.Context(), files)
		if err != nil {
			zap.L().Error("serve: import failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "import failed")
			return
		}

		writeJSON(w, http.StatusOK, processResponse{RunID: res.RunID, Summary: res.Summary})
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(r.URL.Query().Get("status")),
			Limit:  50,
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 1 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = limit
		}

		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("serve: list runs failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				writeJSONError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("serve: get run failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "get run failed")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return eris.Wrap(err, "open upload")
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "create staging file")
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return eris.Wrap(err, "write staging file")
	}
	return eris.Wrap(out.Close(), "close staging file")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: response encode failed", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
