package handler

import (
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/response"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/storage"
)

// FileHandler serves stored uploads through HMAC-signed download links.
type FileHandler struct {
	uploads   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	apiPrefix string
}

// NewFileHandler constructs handler.
func NewFileHandler(uploads *storage.LocalStorage, signer *storage.SignedURLSigner, apiPrefix string) *FileHandler {
	return &FileHandler{uploads: uploads, signer: signer, apiPrefix: apiPrefix}
}

// Sign godoc
// @Summary Sign a stored file path
// @Description Issue a time-limited download link for a blob path returned by a submission detail
// @Tags Files
// @Produce json
// @Param path query string true "Stored blob path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /files/token [get]
func (h *FileHandler) Sign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	path := c.Query("path")
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path required"))
		return
	}

	token, expiresAt, err := h.signer.Generate(claims.UserID, path)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "could not sign path"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        h.apiPrefix + "/files?token=" + url.QueryEscape(token),
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a stored file
// @Description Stream an uploaded blob referenced by a signed token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	_, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "invalid or expired token"))
		return
	}

	file, err := h.uploads.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "file not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "file unreadable"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": `inline; filename="` + filepath.Base(relPath) + `"`,
	})
}
