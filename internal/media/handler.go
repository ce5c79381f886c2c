// Package media serves message attachments out of the GridFS bucket.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"gosocial/internal/common"
	"gosocial/internal/dbmongo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

//go:generate mockgen -destination=mocks/store_mock.go -package=mocks gosocial/internal/media Store

// Store is the slice of dbmongo.MediaStorage the handler needs.
type Store interface {
	UploadFile(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*dbmongo.MediaRef, error)
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.MediaFile, error)
}

type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterPublicRoutes mounts the download route. Media URLs are shared in
// message payloads, so fetching does not require a token.
func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/media/{fileID}", h.Download).Methods(http.MethodGet)
}

// RegisterRoutes mounts the upload route on an authenticated router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/media", h.Upload).Methods(http.MethodPost)
}

// Upload accepts a multipart "file" part and returns the MediaRef to put in
// a send_message payload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, common.Unauthenticated(common.ReasonMissingToken, "authorization required", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, common.Validation(common.ReasonFileRequired, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = contentTypeFor(header.Filename)
	}
	if !strings.HasPrefix(mimeType, "image/") && !strings.HasPrefix(mimeType, "video/") {
		common.WriteError(w, http.StatusBadRequest, common.Validation(common.ReasonUnsupportedMedia, "only images and videos can be attached"))
		return
	}

	ref, err := h.store.UploadFile(r.Context(), header.Filename, mimeType, userID, file)
	if err != nil {
		h.logger.Error("media upload failed", zap.String("userID", userID), zap.String("filename", header.Filename), zap.Error(err))
		common.WriteError(w, http.StatusInternalServerError, common.Infrastructure("upload failed", err))
		return
	}

	common.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"media": ref,
		"kind":  common.DetectMessageKind(mimeType),
	})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileID"]

	reader, file, err := h.store.DownloadFile(r.Context(), fileID)
	if err != nil {
		if !common.IsNotFound(err) {
			h.logger.Error("media download failed", zap.String("fileID", fileID), zap.Error(err))
		}
		common.WriteError(w, common.StatusFor(err), err)
		return
	}
	defer reader.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = contentTypeFor(file.Filename)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
	w.Header().Set("Cache-Control", "private, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("media stream interrupted", zap.String("fileID", fileID), zap.Error(err))
	}
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
