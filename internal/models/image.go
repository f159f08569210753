package models

// ImagePosition anchors one placement of a media file to a worksheet cell.
// One media file may map to several positions: the vendor cell-image layout
// can legitimately place the same picture in multiple cells, or a formula
// error can reuse one image id across cells.
type ImagePosition struct {
	// Position is "<ColLetter><Row>", e.g. "B5"; empty for header/footer
	// media that is anchored to the page rather than to a cell.
	Position string `json:"position"`
	Row      int    `json:"row"`
	Column   string `json:"column"`
	Type     string `json:"type,omitempty"`

	// Duplicate marks a placement that shares its image id with another
	// cell in the vendor layout (a real duplicate placement, not collapsed).
	Duplicate bool `json:"duplicate,omitempty"`
}

// ImageRecord is one extracted embedded image. Data is released once the
// quality analyzer has consumed it; it never reaches the final result.
type ImageRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Data     []byte `json:"-"`
	Position string `json:"position"`
	Row      int    `json:"row"`
	Column   string `json:"column"`
}

// DuplicateRef points at another image confirmed as a near-duplicate.
type DuplicateRef struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

// ImageAnalysisResult is the per-image outcome of the quality pipeline.
type ImageAnalysisResult struct {
	ID         string         `json:"id"`
	Sharpness  float64        `json:"sharpness"`
	IsBlurry   bool           `json:"is_blurry"`
	Hash       string         `json:"hash"`
	Duplicates []DuplicateRef `json:"duplicates"`
	Position   string         `json:"position"`
	Row        int            `json:"row"`
	Column     string         `json:"column"`
	MimeType   string         `json:"mime_type"`
	Size       int            `json:"size"`
}

// ImageValidation aggregates the image pipeline for the final result.
type ImageValidation struct {
	TotalImages     int                   `json:"total_images"`
	BlurryImages    int                   `json:"blurry_images"`
	DuplicateGroups int                   `json:"duplicate_groups"`
	Results         []ImageAnalysisResult `json:"results"`
}
