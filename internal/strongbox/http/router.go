package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/rs/cors"

	_ "github.com/aussiebroadwan/strongbox/api/strongbox" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	SessionCookie = "strongbox_session"
	CSRFCookie    = "strongbox_csrf"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Credentials *service.CredentialService
	Sessions    *service.SessionService
	Ledger      *service.LedgerService
	Vault       *service.VaultService

	// Cookies configures the session and anti-forgery cookies.
	Cookies httpx.CookieOptions

	// PublicBaseURL prefixes share link URLs. Empty means the request's own
	// scheme and host.
	PublicBaseURL string

	// AllowedOrigins enables credentialed CORS for browser front-ends.
	AllowedOrigins []string
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, slogx.WithRedactedPaths("/v1/shared/", "/v1/expire-link/")),
	}

	return r
}

// ApplyRoutes registers every route and freezes the middleware chain.
func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerFiles()
	r.registerSharing()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	var h http.Handler = httpx.Chain(r.Mux, r.middlewares...)
	if len(r.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   r.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpx.CSRFHeader},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
		}).Handler(h)
	}
	r.handler = h
}

// ServeHTTP implements http.Handler for Router.
//
//	@title			Strongbox Vault API
//	@version		0.1.0
//	@description	Encrypted file vault. Files are sealed with AES-256-GCM under a per-file key that is wrapped by the upload password and by the owner's account.
//	@description
//	@description	Sign-in takes a password and then a one-time code sent by email. Requests that change state must send the session's anti-forgery token in the X-CSRF-Token header; with cookies it must equal the strongbox_csrf cookie.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/strongbox
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
		return
	}
	r.handler.ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(httpx.TokenValidatorFunc(r.Sessions.ValidateToken), SessionCookie)
}

func (r *Router) csrf() httpx.Middleware {
	return httpx.CSRFMiddleware(r.Sessions, CSRFCookie)
}

// secured wraps h for a signed-in user: authentication, then the
// anti-forgery check, then the per-user limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		r.authn(),
		httpx.RequireAMR("pwd", "otp"),
		r.csrf(),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{
		Credentials: r.Credentials,
		Sessions:    r.Sessions,
		Cookies:     r.Cookies,
	}

	// Unauthenticated endpoints - strict limits against credential stuffing
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin), httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email")))
	r.Mux.Handle("POST /v1/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP), httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email")))
	r.Mux.Handle("POST /v1/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword), httpx.RateLimitByIP(httpx.StrictLimit)))

	// verify-auth never rejects; it reports whether the caller is signed in
	r.Mux.Handle("GET /v1/verify-auth",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyAuth), httpx.RateLimitByIP(httpx.LenientLimit)))

	r.Mux.Handle("POST /v1/logout", r.secured(http.HandlerFunc(h.HandleLogout), httpx.ModerateLimit))
}

func (r *Router) registerFiles() {
	h := &FilesHandler{Vault: r.Vault, PublicBaseURL: r.PublicBaseURL}

	r.Mux.Handle("POST /v1/upload-file", r.secured(http.HandlerFunc(h.HandleUpload), httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/download-file/{id}", r.secured(http.HandlerFunc(h.HandleDownload), httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/list-files", r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/delete-file/{id}", r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
}

func (r *Router) registerSharing() {
	h := &SharingHandler{Ledger: r.Ledger, Vault: r.Vault, PublicBaseURL: r.PublicBaseURL}

	r.Mux.Handle("POST /v1/share-file/{id}", r.secured(http.HandlerFunc(h.HandleShare), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/revoke-access/{id}", r.secured(http.HandlerFunc(h.HandleRevoke), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/create-share-link/{id}", r.secured(http.HandlerFunc(h.HandleCreateLink), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/expire-link/{token}", r.secured(http.HandlerFunc(h.HandleExpireLink), httpx.ModerateLimit))

	// Anonymous link access, limited by IP
	r.Mux.Handle("GET /v1/shared/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleShared), httpx.RateLimitByIP(httpx.ModerateLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.Vault))

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys), httpx.RateLimitByIP(httpx.PublicLimit)))
}
