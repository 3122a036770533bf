// Package zip builds in-memory archives of rendered project assets.
package zip

import (
	"archive/zip"
	"bytes"
)

type Asset struct {
	Filename string
	Data     []byte
}

// ArchiveAssets packs the assets into a zip archive. Entries are stored
// uncompressed since image payloads are already compressed formats.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   asset.Filename,
			Method: zip.Store,
		})
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
