package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/report"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var addr, dir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the last report over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, err := g.load()
				if err != nil {
					return err
				}
				if dir, err = cfg.Path(cfg.Report.Dir); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", dir, addr)
			return serve(ctx, addr, newReportRouter(dir))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8377", "listen address")
	cmd.Flags().StringVar(&dir, "dir", "", "report directory (default: from the config)")
	return cmd
}

// newReportRouter serves a report directory:
//
//	GET /health              liveness
//	GET /api/results         the whole results file
//	GET /api/tests/{id...}   one test by identity
//	GET /*                   index.html and artifacts
func newReportRouter(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/results", func(w http.ResponseWriter, _ *http.Request) {
			f, err := readResults(dir)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, f)
		})
		r.Get("/tests/*", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "*")
			f, err := readResults(dir)
			if err != nil {
				writeError(w, err)
				return
			}
			for _, t := range f.Tests {
				if t.Identity == id {
					writeJSON(w, http.StatusOK, t)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no test " + id})
		})
	})

	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

func readResults(dir string) (*report.File, error) {
	f, err := os.Open(filepath.Join(dir, report.ResultsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadJSON(f)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		vrt.Logger().Debug("serve: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, os.ErrNotExist) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		vrt.Logger().Warn("serve: shutdown", "error", err)
		return err
	}
	return nil
}
