package ooxml

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"visit-audit/internal/models"
)

// PositionMap associates a media file basename with every cell placement
// that references it. One file can legitimately back multiple anchors.
type PositionMap map[string][]models.ImagePosition

// PositionResolver maps embedded media files to worksheet cells. Resolvers
// are tried in priority order; ok=false means the layout this resolver
// understands is not present in the container.
type PositionResolver interface {
	Resolve(c *Container) (positions PositionMap, warnings []string, ok bool, err error)
}

// MapImagePositions runs the vendor cell-images resolver first and falls
// back to the standard drawing-anchor layout. First success wins.
func MapImagePositions(c *Container, resolvers ...PositionResolver) (PositionMap, []string, error) {
	if len(resolvers) == 0 {
		resolvers = []PositionResolver{NewCellImagesResolver(nil), NewAnchorResolver()}
	}
	for _, r := range resolvers {
		positions, warnings, ok, err := r.Resolve(c)
		if err != nil {
			return nil, warnings, err
		}
		if ok {
			return positions, warnings, nil
		}
	}
	return PositionMap{}, nil, nil
}

// AnchorResolver reads the standard OOXML drawing layout: per-sheet drawing
// parts with two-cell and one-cell anchors. Absolute anchors carry no cell
// mapping and are skipped with a warning. Header/footer media is collected
// with an undefined position (anchored to the page, not a cell).
type AnchorResolver struct{}

func NewAnchorResolver() *AnchorResolver {
	return &AnchorResolver{}
}

func (r *AnchorResolver) Resolve(c *Container) (PositionMap, []string, bool, error) {
	sheetParts, err := workbookSheetParts(c)
	if err != nil {
		return nil, nil, false, err
	}
	positions := PositionMap{}
	var warnings []string
	found := false

	for _, part := range sheetParts {
		sheetXML, err := c.ReadText(part)
		if err != nil {
			continue
		}
		sheetRels, err := c.Relationships(relsPartFor(part))
		if err != nil {
			return nil, warnings, false, err
		}

		if drawing, okd := FirstElement(sheetXML, "drawing"); okd {
			target, okt := sheetRels[drawing.Attr("embed")]
			if !okt {
				target = sheetRels[drawing.Attr("id")]
			}
			if target != "" {
				drawingPart := ResolveTarget(path.Dir(part), target)
				w, err := r.resolveDrawing(c, drawingPart, positions)
				if err != nil {
					return nil, warnings, false, err
				}
				warnings = append(warnings, w...)
				found = true
			}
		}

		// Header/footer pictures live in a legacy VML part; they are page
		// anchored, so they get recorded without a position.
		if legacy, okl := FirstElement(sheetXML, "legacyDrawingHF"); okl {
			if target := sheetRels[legacy.Attr("id")]; target != "" {
				vmlPart := ResolveTarget(path.Dir(part), target)
				r.resolveHeaderFooter(c, vmlPart, positions)
				found = true
			}
		}
	}

	if !found {
		return nil, warnings, false, nil
	}
	return positions, warnings, true, nil
}

func (r *AnchorResolver) resolveDrawing(c *Container, drawingPart string, positions PositionMap) ([]string, error) {
	doc, err := c.ReadText(drawingPart)
	if err != nil {
		return nil, err
	}
	rels, err := c.Relationships(relsPartFor(drawingPart))
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, anchorTag := range []string{"twoCellAnchor", "oneCellAnchor"} {
		for _, anchor := range ElementsByTagName(doc, anchorTag) {
			media := anchorMedia(anchor, rels, drawingPart)
			if media == "" {
				continue
			}
			from, okf := FirstElement(anchor.Inner, "from")
			if !okf {
				continue
			}
			col := innerInt(from.Inner, "col")
			row := innerInt(from.Inner, "row")
			if col < 0 || row < 0 {
				continue
			}
			letter := ColumnIndexToLetter(col)
			positions[media] = append(positions[media], models.ImagePosition{
				Position: fmt.Sprintf("%s%d", letter, row+1),
				Row:      row + 1,
				Column:   letter,
				Type:     anchorTag,
			})
		}
	}

	for _, anchor := range ElementsByTagName(doc, "absoluteAnchor") {
		media := anchorMedia(anchor, rels, drawingPart)
		warnings = append(warnings,
			fmt.Sprintf("absolute anchor is not supported, no cell position for %s", orUnknown(media)))
	}
	return warnings, nil
}

func (r *AnchorResolver) resolveHeaderFooter(c *Container, vmlPart string, positions PositionMap) {
	rels, err := c.Relationships(relsPartFor(vmlPart))
	if err != nil {
		return
	}
	doc, err := c.ReadText(vmlPart)
	if err != nil {
		return
	}
	for _, img := range ElementsByTagName(doc, "imagedata") {
		rid := img.Attr("relid")
		if rid == "" {
			rid = img.Attr("id")
		}
		target, okt := rels[rid]
		if !okt {
			continue
		}
		media := path.Base(ResolveTarget(path.Dir(vmlPart), target))
		positions[media] = append(positions[media], models.ImagePosition{Type: "headerFooter"})
	}
}

// anchorMedia resolves the anchor's embedded picture reference through the
// drawing relationships to a media file basename.
func anchorMedia(anchor Element, rels map[string]string, drawingPart string) string {
	blip, ok := FirstElement(anchor.Inner, "blip")
	if !ok {
		return ""
	}
	rid := blip.Attr("embed")
	if rid == "" {
		rid = blip.Attr("link")
	}
	target, okt := rels[rid]
	if !okt {
		return ""
	}
	return path.Base(ResolveTarget(path.Dir(drawingPart), target))
}

// workbookSheetParts returns worksheet part names in workbook sheet order.
func workbookSheetParts(c *Container) ([]string, error) {
	doc, err := c.ReadText("xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	rels, err := c.Relationships("xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, sheet := range ElementsByTagName(doc, "sheet") {
		rid := sheet.Attr("id")
		target, ok := rels[rid]
		if !ok {
			continue
		}
		parts = append(parts, ResolveTarget("xl", target))
	}
	return parts, nil
}

func relsPartFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

func innerInt(doc, tag string) int {
	elem, ok := FirstElement(doc, tag)
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(elem.Text()))
	if err != nil {
		return -1
	}
	return n
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown media"
	}
	return s
}
