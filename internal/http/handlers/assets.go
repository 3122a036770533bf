package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxReferenceUploadBytes = 8 << 20

// UploadReference stores a client-provided reference image and returns the
// URL that image generation settings can carry in referenceImageUrls.
func (a *App) UploadReference(w http.ResponseWriter, r *http.Request) {
	if a.Files == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReferenceUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", "unsupported image type")
		return
	}

	key := fmt.Sprintf("references/%s%s", uuid.NewString(), ext)
	stored, err := a.Files.Write(r.Context(), key, data)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	url := strings.TrimRight(a.Config.StorageBaseURL, "/") + "/" + stored
	a.Logger.Info().Str("key", stored).Int("bytes", len(data)).Msg("handlers: reference image stored")
	a.json(w, http.StatusCreated, map[string]string{"key": stored, "url": url})
}
