package ooxml

import (
	"fmt"
	"path"
	"strings"

	"visit-audit/internal/models"
)

const (
	cellImagesPart     = "xl/cellimages.xml"
	cellImagesRelsPart = "xl/_rels/cellimages.xml.rels"
)

// CellImagesResolver reads the vendor-specific cell-images layout: a
// workbook-level image list whose entries are placed in cells through a
// DISPIMG formula naming a unique image identifier. When a formula
// position cannot be found for an identifier, an optional table-structure
// classifier estimates the position from the image's index within a known
// record layout.
type CellImagesResolver struct {
	classifier *LayoutClassifier
}

func NewCellImagesResolver(classifier *LayoutClassifier) *CellImagesResolver {
	return &CellImagesResolver{classifier: classifier}
}

func (r *CellImagesResolver) Resolve(c *Container) (PositionMap, []string, bool, error) {
	if !c.Has(cellImagesPart) || !c.Has(cellImagesRelsPart) {
		return nil, nil, false, nil
	}
	rels, err := c.Relationships(cellImagesRelsPart)
	if err != nil {
		return nil, nil, false, err
	}
	doc, err := c.ReadText(cellImagesPart)
	if err != nil {
		return nil, nil, false, err
	}

	// relationship id → media file basename
	media := make(map[string]string, len(rels))
	for rid, target := range rels {
		media[rid] = path.Base(ResolveTarget("xl", target))
	}

	// Declared cell-image entries: image identifier → media file.
	type entry struct {
		imageID string
		media   string
	}
	var entries []entry
	for _, ci := range ElementsByTagName(doc, "cellImage") {
		pic, okp := FirstElement(ci.Inner, "pic")
		if !okp {
			continue
		}
		imageID := ""
		if nv, okn := FirstElement(pic.Inner, "cNvPr"); okn {
			imageID = nv.Attr("name")
		}
		blip, okb := FirstElement(pic.Inner, "blip")
		if !okb {
			continue
		}
		rid := blip.Attr("embed")
		file, okm := media[rid]
		if !okm || imageID == "" {
			continue
		}
		entries = append(entries, entry{imageID: imageID, media: file})
	}
	if len(entries) == 0 {
		return nil, nil, false, nil
	}

	formulaCells, err := r.scanFormulaPlacements(c)
	if err != nil {
		return nil, nil, false, err
	}

	positions := PositionMap{}
	var warnings []string
	for i, e := range entries {
		cells := formulaCells[e.imageID]
		if len(cells) == 0 {
			// Formula-based position missing; the table-structure
			// classifier is a fallback only.
			if pos, okc := r.estimatePosition(i, len(entries)); okc {
				positions[e.media] = append(positions[e.media], pos)
			} else {
				warnings = append(warnings,
					fmt.Sprintf("no cell placement found for image %s (%s)", e.imageID, e.media))
			}
			continue
		}
		duplicate := len(cells) > 1
		if duplicate {
			warnings = append(warnings,
				fmt.Sprintf("image %s is placed in %d cells: %s", e.imageID, len(cells), strings.Join(cells, ", ")))
		}
		for _, ref := range cells {
			col, row, err := SplitCellRef(ref)
			if err != nil {
				continue
			}
			letter := ColumnIndexToLetter(col)
			positions[e.media] = append(positions[e.media], models.ImagePosition{
				Position:  ref,
				Row:       row,
				Column:    letter,
				Type:      "cellImage",
				Duplicate: duplicate,
			})
		}
	}
	return positions, warnings, true, nil
}

// scanFormulaPlacements scans every worksheet's cell formulas for DISPIMG
// calls and returns image identifier → cell references. Each matching cell
// is a true placement; more than one cell per identifier is a real
// duplicate placement and all of them are kept.
func (r *CellImagesResolver) scanFormulaPlacements(c *Container) (map[string][]string, error) {
	parts, err := workbookSheetParts(c)
	if err != nil {
		return nil, err
	}
	placements := make(map[string][]string)
	for _, part := range parts {
		doc, err := c.ReadText(part)
		if err != nil {
			continue
		}
		for _, cell := range ElementsByTagName(doc, "c") {
			f, okf := FirstElement(cell.Inner, "f")
			if !okf {
				continue
			}
			formula := f.Text()
			if !strings.Contains(formula, "DISPIMG") {
				continue
			}
			imageID := dispimgID(formula)
			if imageID == "" {
				continue
			}
			ref := cell.Attr("r")
			if ref == "" {
				continue
			}
			placements[imageID] = append(placements[imageID], ref)
		}
	}
	return placements, nil
}

// dispimgID pulls the quoted image identifier out of a DISPIMG formula,
// e.g. `_xlfn.DISPIMG("ID_3C4F...",1)`.
func dispimgID(formula string) string {
	i := strings.Index(formula, "DISPIMG")
	if i < 0 {
		return ""
	}
	rest := formula[i:]
	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return ""
	}
	rest = rest[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func (r *CellImagesResolver) estimatePosition(imageIndex, totalImages int) (models.ImagePosition, bool) {
	if r.classifier == nil {
		return models.ImagePosition{}, false
	}
	return r.classifier.Estimate(imageIndex, totalImages)
}
