package ooxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchorWorkbook(t *testing.T, drawingXML string) *Container {
	t.Helper()
	data := buildZip(t, map[string]string{
		"xl/workbook.xml": `<workbook><sheets>
			<sheet name="拜访记录" sheetId="1" r:id="rId1"/>
		</sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
		</Relationships>`,
		"xl/worksheets/sheet1.xml": `<worksheet>
			<sheetData/>
			<drawing r:id="rId1"/>
		</worksheet>`,
		"xl/worksheets/_rels/sheet1.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="../drawings/drawing1.xml"/>
		</Relationships>`,
		"xl/drawings/drawing1.xml": drawingXML,
		"xl/drawings/_rels/drawing1.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="../media/image1.png"/>
		</Relationships>`,
		"xl/media/image1.png": "pngbytes",
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)
	return c
}

func TestAnchorResolverTwoCellAnchor(t *testing.T) {
	c := anchorWorkbook(t, `<xdr:wsDr>
		<xdr:twoCellAnchor editAs="oneCell">
			<xdr:from><xdr:col>1</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>4</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
			<xdr:to><xdr:col>2</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>5</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>
			<xdr:pic><xdr:blipFill><a:blip r:embed="rId1"/></xdr:blipFill></xdr:pic>
		</xdr:twoCellAnchor>
	</xdr:wsDr>`)

	positions, warnings, ok, err := NewAnchorResolver().Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, warnings)

	placements := positions["image1.png"]
	require.Len(t, placements, 1)
	assert.Equal(t, "B5", placements[0].Position)
	assert.Equal(t, 5, placements[0].Row)
	assert.Equal(t, "B", placements[0].Column)
	assert.Equal(t, "twoCellAnchor", placements[0].Type)
}

func TestAnchorResolverOneCellAnchor(t *testing.T) {
	c := anchorWorkbook(t, `<xdr:wsDr>
		<xdr:oneCellAnchor>
			<xdr:from><xdr:col>0</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>0</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
			<xdr:pic><xdr:blipFill><a:blip r:embed="rId1"/></xdr:blipFill></xdr:pic>
		</xdr:oneCellAnchor>
	</xdr:wsDr>`)

	positions, _, ok, err := NewAnchorResolver().Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)

	placements := positions["image1.png"]
	require.Len(t, placements, 1)
	assert.Equal(t, "A1", placements[0].Position)
	assert.Equal(t, "oneCellAnchor", placements[0].Type)
}

func TestAnchorResolverAbsoluteAnchorWarns(t *testing.T) {
	c := anchorWorkbook(t, `<xdr:wsDr>
		<xdr:absoluteAnchor>
			<xdr:pos x="0" y="0"/>
			<xdr:pic><xdr:blipFill><a:blip r:embed="rId1"/></xdr:blipFill></xdr:pic>
		</xdr:absoluteAnchor>
	</xdr:wsDr>`)

	positions, warnings, ok, err := NewAnchorResolver().Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, positions["image1.png"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "absolute anchor")
}

func TestAnchorResolverNoDrawings(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml": `<workbook><sheets>
			<sheet name="Sheet1" sheetId="1" r:id="rId1"/>
		</sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
		</Relationships>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData/></worksheet>`,
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)

	_, _, ok, err := NewAnchorResolver().Resolve(c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func cellImagesWorkbook(t *testing.T, sheetXML string) *Container {
	t.Helper()
	data := buildZip(t, map[string]string{
		"xl/workbook.xml": `<workbook><sheets>
			<sheet name="拜访记录" sheetId="1" r:id="rId1"/>
		</sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
		</Relationships>`,
		"xl/worksheets/sheet1.xml": sheetXML,
		"xl/cellimages.xml": `<etc:cellImages>
			<etc:cellImage>
				<xdr:pic>
					<xdr:nvPicPr><xdr:cNvPr id="1" name="ID_ABC123"/></xdr:nvPicPr>
					<xdr:blipFill><a:blip r:embed="rId1"/></xdr:blipFill>
				</xdr:pic>
			</etc:cellImage>
		</etc:cellImages>`,
		"xl/_rels/cellimages.xml.rels": `<Relationships>
			<Relationship Id="rId1" Target="media/image1.png"/>
		</Relationships>`,
		"xl/media/image1.png": "pngbytes",
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)
	return c
}

func TestCellImagesResolverFormulaPlacement(t *testing.T) {
	c := cellImagesWorkbook(t, `<worksheet><sheetData>
		<row r="2"><c r="B2" t="str"><f>_xlfn.DISPIMG("ID_ABC123",1)</f><v>0</v></c></row>
	</sheetData></worksheet>`)

	positions, warnings, ok, err := NewCellImagesResolver(nil).Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, warnings)

	placements := positions["image1.png"]
	require.Len(t, placements, 1)
	assert.Equal(t, "B2", placements[0].Position)
	assert.Equal(t, 2, placements[0].Row)
	assert.Equal(t, "B", placements[0].Column)
	assert.Equal(t, "cellImage", placements[0].Type)
	assert.False(t, placements[0].Duplicate)
}

func TestCellImagesResolverDuplicatePlacement(t *testing.T) {
	c := cellImagesWorkbook(t, `<worksheet><sheetData>
		<row r="2"><c r="B2"><f>_xlfn.DISPIMG("ID_ABC123",1)</f></c></row>
		<row r="3"><c r="B3"><f>_xlfn.DISPIMG("ID_ABC123",1)</f></c></row>
	</sheetData></worksheet>`)

	positions, warnings, ok, err := NewCellImagesResolver(nil).Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)

	placements := positions["image1.png"]
	require.Len(t, placements, 2)
	for _, p := range placements {
		assert.True(t, p.Duplicate)
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ID_ABC123")
}

func TestCellImagesResolverNoFormulaFallsBackToClassifier(t *testing.T) {
	c := cellImagesWorkbook(t, `<worksheet><sheetData/></worksheet>`)

	classifier := NewLayoutClassifier([]RecordLayout{{
		Name:            "visit-photos",
		HeaderKeywords:  []string{"名称"},
		ImageColumns:    []string{"H"},
		ImagesPerRecord: 1,
		DataStartRow:    3,
	}})
	require.True(t, classifier.Detect([]string{"拜访时间", "客户名称"}))

	positions, warnings, ok, err := NewCellImagesResolver(classifier).Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, warnings)

	placements := positions["image1.png"]
	require.Len(t, placements, 1)
	assert.Equal(t, "H3", placements[0].Position)
	assert.Equal(t, "estimated", placements[0].Type)
}

func TestCellImagesResolverNoFormulaNoClassifierWarns(t *testing.T) {
	c := cellImagesWorkbook(t, `<worksheet><sheetData/></worksheet>`)

	positions, warnings, ok, err := NewCellImagesResolver(nil).Resolve(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, positions["image1.png"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no cell placement")
}

func TestMapImagePositionsPrefersCellImages(t *testing.T) {
	// Container carries the vendor part, so the anchor resolver must not run.
	c := cellImagesWorkbook(t, `<worksheet><sheetData>
		<row r="5"><c r="C5"><f>_xlfn.DISPIMG("ID_ABC123",1)</f></c></row>
	</sheetData></worksheet>`)

	positions, _, err := MapImagePositions(c)
	require.NoError(t, err)
	placements := positions["image1.png"]
	require.Len(t, placements, 1)
	assert.Equal(t, "cellImage", placements[0].Type)
}

func TestMapImagePositionsNoLayouts(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":            `<workbook><sheets/></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships/>`,
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)

	positions, warnings, err := MapImagePositions(c)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.Empty(t, warnings)
}
