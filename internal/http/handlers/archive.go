package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/pkg/zip"
)

// ImageArchive streams every stored image of a project as one zip download.
// Locally stored images are embedded as file bytes; remote URLs are embedded
// as-is so the client can fetch them.
func (a *App) ImageArchive(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := a.Projects.Status(r.Context(), projectID); err != nil {
		a.domainError(w, r, err)
		return
	}
	rows, err := a.Images.ListByProject(r.Context(), projectID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if len(rows) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "project has no generated images")
		return
	}

	assets := make([]zip.Asset, 0, len(rows))
	for _, row := range rows {
		name := fmt.Sprintf("scene-%02d-image-%02d%s", row.SceneIndex, row.ImageIndex, extensionOf(row.ImageURL))
		assets = append(assets, zip.Asset{
			Filename: name,
			Data:     a.loadImageData(row.ImageURL),
		})
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=project-%s.zip", projectID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// loadImageData resolves an image URL to bytes. URLs under the configured
// storage base map back onto the local store; anything else stays a URL
// reference inside the archive.
func (a *App) loadImageData(imageURL string) []byte {
	base := strings.TrimRight(a.Config.StorageBaseURL, "/")
	if a.Files != nil && base != "" && strings.HasPrefix(imageURL, base+"/") {
		key := strings.TrimPrefix(imageURL, base+"/")
		if data, err := a.Files.Read(key); err == nil {
			return data
		}
	}
	return []byte(imageURL)
}

func extensionOf(imageURL string) string {
	ext := strings.ToLower(filepath.Ext(imageURL))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
		return ext
	}
	return ".png"
}
