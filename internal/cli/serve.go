package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/graphir/graphir/pkg/graphdoc"
	"github.com/graphir/graphir/pkg/locator"
	"github.com/graphir/graphir/pkg/render"
)

// newServeCmd creates the serve command: a small HTTP server exposing one
// document as JSON, DOT, and SVG, for browsing a graph without re-running
// the CLI per view.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve a document over HTTP as JSON, DOT, and SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args[0], addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8321", "listen address")
	return cmd
}

func runServe(ctx context.Context, input, addr string) error {
	logger := loggerFromContext(ctx)

	g, err := graphdoc.ReadFile(input)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/doc", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := graphdoc.Write(g, w); err != nil {
			logger.Errorf("write document: %v", err)
		}
	})
	r.Get("/dot", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.Write([]byte(render.ToDOT(g, dotOptions(req))))
	})
	r.Get("/svg", func(w http.ResponseWriter, req *http.Request) {
		svg, err := render.RenderSVG(req.Context(), render.ToDOT(g, dotOptions(req)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg)
	})
	r.Get("/locate/{selector}", func(w http.ResponseWriter, req *http.Request) {
		ref, err := locator.Match(g, chi.URLParam(req, "selector"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Write([]byte(ref.String() + "\n"))
	})

	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Infof("Serving %s on http://%s", input, addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func dotOptions(req *http.Request) render.Options {
	opts := render.Options{Detailed: req.URL.Query().Get("detailed") == "true"}
	if layers, ok := req.URL.Query()["layer"]; ok {
		opts.Layers = layers
	}
	return opts
}
