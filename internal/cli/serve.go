package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

const shutdownTimeout = 5 * time.Second

type serveOpts struct {
	project projectFlags
	addr    string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [artifact|path]",
		Short: "Serve a package list over HTTP",
		Long: `Serve loads a package list (an artifact, or a crate that is resolved once at
startup) and serves it read-only:

  GET /packages               all packages as JSON (?license=MIT filters)
  GET /packages/{nameVersion} one package, e.g. /packages/serde-1.0.200
  GET /summary                license identifiers and the crates using them
  GET /licenses.txt           the plain-text license report`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := c.loadList(ctx, &opts.project, targetArg(args))
			if err != nil {
				return err
			}
			return serve(ctx, opts.addr, newRouter(list, loggerFromContext(ctx)), loggerFromContext(ctx))
		},
	}

	opts.project.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "listen address")

	return cmd
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	printSuccess("Serving on http://%s", addr)

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeNetwork, err, "listen on %s", addr)
	case <-ctx.Done():
	}

	logger.Debug("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter exposes list over HTTP.
func newRouter(list pkglist.PackageList, logger *log.Logger) http.Handler {
	h := &listHandler{list: list}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/packages", h.packages)
	r.Get("/packages/{nameVersion}", h.pkg)
	r.Get("/summary", h.summary)
	r.Get("/licenses.txt", h.text)

	return r
}

type listHandler struct {
	list pkglist.PackageList
}

func (h *listHandler) packages(w http.ResponseWriter, r *http.Request) {
	list := h.list
	if id := r.URL.Query().Get("license"); id != "" {
		list = nil
		for _, p := range h.list {
			if p.License() == id {
				list = append(list, p)
			}
		}
	}
	if list == nil {
		list = pkglist.PackageList{}
	}
	writeJSONResponse(w, http.StatusOK, list)
}

func (h *listHandler) pkg(w http.ResponseWriter, r *http.Request) {
	nv := chi.URLParam(r, "nameVersion")
	p, ok := h.list.Find(nv)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, map[string]string{"error": "package " + nv + " not found"})
		return
	}
	writeJSONResponse(w, http.StatusOK, p)
}

func (h *listHandler) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.list.Summary())
}

func (h *listHandler) text(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = h.list.WriteTo(w)
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, v)
}

// requestLogger logs each request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
