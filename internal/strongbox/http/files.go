package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
)

const (
	// multipartOverhead is the slack allowed above the file size limit for
	// form fields and part headers.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of an upload is held in memory before the
	// form spills to temporary files.
	multipartMemory = 8 << 20
)

// FilesHandler serves upload, download, listing and deletion.
type FilesHandler struct {
	Vault         *service.VaultService
	PublicBaseURL string
}

// identity builds the caller's identity from the verified claims.
func identity(r *http.Request) (domain.Identity, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		return domain.Identity{}, false
	}
	return identityFromClaims(claims), true
}

func identityFromClaims(c jwtx.Claims) domain.Identity {
	return domain.Identity{UserID: c.Subject, Email: c.Email, Name: c.Name, SessionID: c.SID}
}

// HandleUpload handles POST /v1/upload-file
//
//	@Summary		Upload a file
//	@Description	Multipart form with a "file" part and a "password" field. The body is encrypted before it is stored.
//	@Tags			Files
//	@Security		BearerAuth
//	@Accept			mpfd
//	@Produce		json
//	@Param			file		formData	file	true	"file to store"
//	@Param			password	formData	string	true	"password that unlocks the file for grantees and link holders"
//	@Success		201			{object}	vaultsdk.UploadResponse
//	@Failure		400			{object}	vaultsdk.APIError
//	@Failure		401			{object}	vaultsdk.APIError
//	@Failure		413			{object}	vaultsdk.APIError	"File too large"
//	@Failure		503			{object}	vaultsdk.APIError	"Blob storage unavailable"
//	@Router			/v1/upload-file [post].
func (h *FilesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Vault.UploadLimit()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			vaultsdk.ErrPayloadTooLarge.WriteError(w)
			return
		}
		vaultsdk.ErrInvalidRequest.WithDescription("expected a multipart form").WriteError(w)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		vaultsdk.ErrInvalidRequest.WithDescription("file is required").WriteError(w)
		return
	}
	defer func() { _ = file.Close() }()

	f, err := h.Vault.Upload(r.Context(), caller, service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Password:    r.FormValue("password"),
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, vaultsdk.UploadResponse{FileID: f.ID})
}

// HandleDownload handles GET /v1/download-file/{id}
//
//	@Summary		Download or view a file
//	@Description	disposition=inline needs a view grant, attachment (the default) a download grant. The owner needs no password; anyone else sends it in X-File-Password.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		application/octet-stream
//	@Param			id				path		string	true	"file id"
//	@Param			disposition		query		string	false	"inline or attachment"
//	@Param			X-File-Password	header		string	false	"upload password"
//	@Success		200				{file}		binary
//	@Failure		403				{object}	vaultsdk.APIError	"Wrong or missing password, or grant too weak"
//	@Failure		404				{object}	vaultsdk.APIError
//	@Router			/v1/download-file/{id} [get].
func (h *FilesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	disposition := "attachment"
	action := domain.ActionDownload
	switch r.URL.Query().Get("disposition") {
	case "", "attachment":
	case "inline":
		disposition, action = "inline", domain.ActionView
	default:
		vaultsdk.ErrInvalidRequest.WithDescription("disposition must be inline or attachment").WriteError(w)
		return
	}

	content, err := h.Vault.Download(r.Context(), r.PathValue("id"), caller, filePassword(r), action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeContent(w, r, content, disposition)
}

// HandleList handles GET /v1/list-files
//
//	@Summary		List files
//	@Description	Files the caller owns, with their grants and live share links, and files shared with the caller's email.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.ListFilesResponse
//	@Failure		401	{object}	vaultsdk.APIError
//	@Router			/v1/list-files [get].
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	listing, err := h.Vault.List(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	base := baseURL(r, h.PublicBaseURL)
	resp := vaultsdk.ListFilesResponse{
		OwnedFiles:  make([]vaultsdk.OwnedFile, 0, len(listing.Owned)),
		SharedFiles: make([]vaultsdk.SharedFile, 0, len(listing.Shared)),
	}
	for _, o := range listing.Owned {
		of := vaultsdk.OwnedFile{
			ID:          o.File.ID,
			FileName:    o.File.Name,
			FileSize:    o.File.Size,
			ContentType: o.File.ContentType,
			UploadedAt:  o.File.UploadedAt,
			Grants:      make([]vaultsdk.Grant, 0, len(o.Grants)),
			Links:       make([]vaultsdk.Link, 0, len(o.Links)),
		}
		for _, g := range o.Grants {
			of.Grants = append(of.Grants, vaultsdk.Grant{
				Email:      g.Email,
				Permission: string(g.Permission),
				UpdatedAt:  g.UpdatedAt,
			})
		}
		for _, l := range o.Links {
			of.Links = append(of.Links, vaultsdk.Link{
				ShareLink:       shareURL(base, l.Token),
				Token:           l.Token,
				RequirePassword: l.Link.RequirePassword,
				ExpiresAt:       l.Link.ExpiresAt,
				Active:          l.Link.Active,
			})
		}
		resp.OwnedFiles = append(resp.OwnedFiles, of)
	}
	for _, s := range listing.Shared {
		resp.SharedFiles = append(resp.SharedFiles, vaultsdk.SharedFile{
			ID:          s.File.ID,
			FileName:    s.File.Name,
			FileSize:    s.File.Size,
			ContentType: s.File.ContentType,
			UploadedAt:  s.File.UploadedAt,
			Owner:       vaultsdk.User{ID: s.File.OwnerID, Email: s.OwnerEmail, Name: s.OwnerName},
			Permission:  string(s.Permission),
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /v1/delete-file/{id}
//
//	@Summary		Delete a file
//	@Description	Removes the file, its grants and its share links. Owner only.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"file id"
//	@Success		200	{object}	vaultsdk.MessageResponse
//	@Failure		403	{object}	vaultsdk.APIError
//	@Failure		404	{object}	vaultsdk.APIError
//	@Router			/v1/delete-file/{id} [delete].
func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(r)
	if !ok {
		vaultsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	if err := h.Vault.Delete(r.Context(), r.PathValue("id"), caller); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "file deleted"})
}

// contentSecurityPolicy keeps stored content from running script on the API
// origin, even when a browser renders it.
const contentSecurityPolicy = "sandbox; default-src 'none'"

// inlineTypes are the passive media types a browser may render in place.
var inlineTypes = map[string]bool{
	"application/pdf": true,
	"image/gif":       true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"text/plain":      true,
}

// servedAs picks the response content type and disposition. Anything outside
// inlineTypes is sent as an opaque attachment.
func servedAs(contentType, disposition string) (string, string) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "application/octet-stream", "attachment"
	}
	if disposition == "inline" && !inlineTypes[mt] {
		return "application/octet-stream", "attachment"
	}
	return contentType, disposition
}

// writeContent streams a decrypted body with download headers.
func writeContent(w http.ResponseWriter, r *http.Request, c service.Content, disposition string) {
	contentType, disposition := servedAs(c.File.ContentType, disposition)
	cd := mime.FormatMediaType(disposition, map[string]string{"filename": c.File.Name})
	if cd == "" {
		cd = disposition
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", cd)
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Data)))
	w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(c.Data); err != nil {
		slogx.FromContext(r.Context()).Debug("client went away during download", "err", err)
	}
}

func baseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func shareURL(base, token string) string {
	return base + "/v1/shared/" + token
}
