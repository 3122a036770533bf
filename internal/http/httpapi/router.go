package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options carries the cross-cutting pieces the router wires around the
// handlers: rate limiting, locale detection and static file serving.
type Options struct {
	CORSOrigins   []string
	RateLimit     int
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	StaticDir     string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Post("/generate", app.Generate)
			r.Get("/", app.GetProject)
			r.Post("/stop", app.Stop)
			r.Put("/images/settings", app.UpdateImageSettings)
			r.Post("/images/regenerate", app.RegenerateImages)
			r.Post("/scenes/{index}/images/regenerate", app.RegenerateSceneImages)
			r.Get("/images/archive", app.ImageArchive)
		})
		r.Post("/assets/references", app.UploadReference)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
