package http

import (
	"net/http"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
)

// SharingHandler serves grants and share links.
type SharingHandler struct {
	Ledger        *service.LedgerService
	Vault         *service.VaultService
	PublicBaseURL string
}

// HandleShare handles POST /v1/share-file/{id}
//
//	@Summary		Share a file with an email
//	@Description	Creates a grant or changes its permission. Owner only.
//	@Tags			Sharing
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"file id"
//	@Param			request	body		vaultsdk.ShareRequest	true	"email and permission (view or download)"
//	@Success		200		{object}	vaultsdk.MessageResponse
//	@Failure		400		{object}	vaultsdk.APIError
//	@Failure		403		{object}	vaultsdk.APIError
//	@Failure		404		{object}	vaultsdk.APIError
//	@Failure		409		{object}	vaultsdk.APIError	"Concurrent change, retry"
//	@Router			/v1/share-file/{id} [post].
func (h *SharingHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}
	var req vaultsdk.ShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Ledger.Grant(r.Context(), r.PathValue("id"), caller, req.Email, req.Permission); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "access granted"})
}

// HandleRevoke handles POST /v1/revoke-access/{id}
//
//	@Summary		Revoke a grant
//	@Description	Removing a grant that does not exist succeeds. Owner only.
//	@Tags			Sharing
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"file id"
//	@Param			request	body		vaultsdk.RevokeRequest	true	"email"
//	@Success		200		{object}	vaultsdk.MessageResponse
//	@Failure		403		{object}	vaultsdk.APIError
//	@Failure		404		{object}	vaultsdk.APIError
//	@Router			/v1/revoke-access/{id} [post].
func (h *SharingHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}
	var req vaultsdk.RevokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Ledger.Revoke(r.Context(), r.PathValue("id"), caller, req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "access revoked"})
}

// HandleCreateLink handles POST /v1/create-share-link/{id}
//
//	@Summary		Create a share link
//	@Description	expiry_hours must be between 0 and 720; 0 creates a link that is already expired. Links require the upload password unless require_password is false.
//	@Tags			Sharing
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"file id"
//	@Param			request	body		vaultsdk.CreateLinkRequest	true	"lifetime"
//	@Success		201		{object}	vaultsdk.CreateLinkResponse
//	@Failure		400		{object}	vaultsdk.APIError
//	@Failure		403		{object}	vaultsdk.APIError
//	@Failure		404		{object}	vaultsdk.APIError
//	@Router			/v1/create-share-link/{id} [post].
func (h *SharingHandler) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}
	var req vaultsdk.CreateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	requirePassword := req.RequirePassword == nil || *req.RequirePassword

	created, err := h.Ledger.CreateLink(r.Context(), r.PathValue("id"), caller, req.ExpiryHours, requirePassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, vaultsdk.CreateLinkResponse{
		ShareLink:       shareURL(baseURL(r, h.PublicBaseURL), created.Token),
		Token:           created.Token,
		ExpiresAt:       created.Link.ExpiresAt,
		RequirePassword: created.Link.RequirePassword,
	})
}

// HandleExpireLink handles POST /v1/expire-link/{token}
//
//	@Summary	Deactivate a share link
//	@Tags		Sharing
//	@Security	BearerAuth
//	@Produce	json
//	@Param		token	path		string	true	"link token"
//	@Success	200		{object}	vaultsdk.MessageResponse
//	@Failure	403		{object}	vaultsdk.APIError
//	@Failure	404		{object}	vaultsdk.APIError
//	@Router		/v1/expire-link/{token} [post].
func (h *SharingHandler) HandleExpireLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	if err := h.Ledger.ExpireLink(r.Context(), r.PathValue("token"), caller); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "link expired"})
}

// HandleShared handles GET /v1/shared/{token}
//
//	@Summary		Open a share link
//	@Description	Without download=1 or a password this returns the file's metadata. With either it returns the file body; password links need the upload password in X-File-Password.
//	@Tags			Sharing
//	@Produce		json
//	@Produce		application/octet-stream
//	@Param			token			path		string	true	"link token"
//	@Param			download		query		string	false	"1 to fetch the body"
//	@Param			X-File-Password	header		string	false	"upload password"
//	@Success		200				{object}	vaultsdk.LinkMetadata
//	@Failure		403				{object}	vaultsdk.APIError	"Password missing or wrong"
//	@Failure		404				{object}	vaultsdk.APIError
//	@Failure		410				{object}	vaultsdk.APIError	"Link expired"
//	@Router			/v1/shared/{token} [get].
func (h *SharingHandler) HandleShared(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	password := filePassword(r)

	if password == "" && r.URL.Query().Get("download") != "1" {
		info, err := h.Vault.LinkMetadata(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, vaultsdk.LinkMetadata{
			FileName:         info.File.Name,
			FileSize:         info.File.Size,
			ContentType:      info.File.ContentType,
			Owner:            info.OwnerEmail,
			ExpiresAt:        info.Link.ExpiresAt,
			RequiresPassword: info.Link.RequirePassword,
		})
		return
	}

	content, err := h.Vault.DownloadByLink(r.Context(), token, password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeContent(w, r, content, "attachment")
}
