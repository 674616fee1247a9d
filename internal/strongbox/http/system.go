package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Returns 200 whenever the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	vaultsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, vaultsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the token signer and the blob store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	vaultsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	vaultsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	vault *service.VaultService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"signer":   "ok",
			"blobs":    "ok",
		}
		status := "ok"
		code := http.StatusOK
		fail := func(name, msg string) {
			checks[name] = "error: " + msg
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if err := st.Ping(r.Context()); err != nil {
			fail("database", err.Error())
		}
		if keys == nil || !keys.IsReady() {
			fail("signer", "no keys loaded")
		}
		if vault != nil {
			if err := vault.Ready(r.Context()); err != nil {
				fail("blobs", err.Error())
			}
		}

		httpx.WriteJSON(w, code, vaultsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the public keys that verify session tokens.
//
//	@Summary	Get JWKS
//	@Tags		well-known
//	@Produce	json
//	@Success	200	{object}	jwtx.JWKS	"The JSON Web Key Set"
//	@Router		/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
