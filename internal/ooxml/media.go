package ooxml

import (
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"visit-audit/internal/models"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".emf":  false,
	".wmf":  false,
}

// ExtractImages reads every decodable media entry and pairs it with its
// mapped cell placements. A media file mapped to several cells yields one
// record per placement sharing the same bytes; unmapped files get a
// synthetic id and no position.
func ExtractImages(c *Container, positions PositionMap) ([]models.ImageRecord, error) {
	names := c.List("xl/media/")
	sort.Strings(names)

	var records []models.ImageRecord
	for _, name := range names {
		ext := strings.ToLower(path.Ext(name))
		if supported, known := imageExtensions[ext]; known && !supported {
			continue
		}
		data, err := c.ReadBytes(name)
		if err != nil {
			continue
		}
		base := path.Base(name)
		placements := positions[base]
		if len(placements) == 0 {
			records = append(records, models.ImageRecord{
				ID:   "img-" + uuid.New().String()[:8],
				Name: base,
				Size: len(data),
				Data: data,
			})
			continue
		}
		for _, pos := range placements {
			// The cell alone is not a stable key: two distinct media
			// files can anchor to the same cell.
			id := pos.Position + "#" + base
			if pos.Position == "" {
				id = "img-" + uuid.New().String()[:8]
			}
			records = append(records, models.ImageRecord{
				ID:       id,
				Name:     base,
				Size:     len(data),
				Data:     data,
				Position: pos.Position,
				Row:      pos.Row,
				Column:   pos.Column,
			})
		}
	}
	return records, nil
}

// SniffMimeType detects an image's media type from its leading bytes.
func SniffMimeType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
