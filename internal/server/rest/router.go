// Package rest exposes the session and recording services over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"

	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/auth"
	"github.com/jagcoaching/speechcoach/internal/server/models"
	"github.com/jagcoaching/speechcoach/internal/server/services"
)

// SessionService is implemented by services.UserService.
type SessionService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string, meta models.DeviceInfo) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string, meta models.DeviceInfo) (*services.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// RecordingService is implemented by services.RecordingService.
type RecordingService interface {
	CreateUpload(ctx context.Context, userID, filename, contentType string) (*services.Upload, error)
	List(ctx context.Context, userID string) ([]*models.Recording, error)
	Get(ctx context.Context, userID, id string) (*models.Recording, error)
	RequestAnalysis(ctx context.Context, userID, id string) (*models.Recording, error)
}

// Options configures NewRouter. Recordings may be nil, in which case the
// recording routes are not mounted.
type Options struct {
	Sessions   SessionService
	Recordings RecordingService
	Log        logging.Logger
	Production bool

	// IPRateLimit caps requests per client address on the token endpoints
	// within IPRateWindow. Zero disables it.
	IPRateLimit  int
	IPRateWindow time.Duration

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Otherwise the TCP peer address is used.
	TrustProxyHeaders bool

	// Ping backs /healthz when set.
	Ping func(ctx context.Context) error
}

type handler struct {
	sessions   SessionService
	recordings RecordingService
	log        logging.Logger
	validate   *validator.Validate
	ping       func(ctx context.Context) error
}

// NewRouter builds the HTTP handler tree.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		sessions:   opts.Sessions,
		recordings: opts.Recordings,
		log:        opts.Log,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		ping:       opts.Ping,
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(
		accessLog(opts.Log),
		middleware.Recoverer,
		middleware.StripSlashes,
		secureMiddleware.Handler,
	)

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.IPRateLimit > 0 {
				r.Use(httprate.LimitByIP(opts.IPRateLimit, opts.IPRateWindow))
			}
			r.Post("/register", h.register)
			r.Post("/auth/token", h.token)
			r.Post("/auth/token/refresh", h.refresh)
		})

		r.Get("/users/me", h.me)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.logout)

			if h.recordings != nil {
				r.Post("/recordings", h.createRecording)
				r.Get("/recordings", h.listRecordings)
				r.Get("/recordings/{id}", h.getRecording)
				r.Post("/recordings/{id}/analyze", h.analyzeRecording)
			}
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.log.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
