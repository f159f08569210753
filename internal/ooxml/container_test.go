package ooxml

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip assembles an in-memory archive from name → content pairs.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpenContainer(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":     "<workbook/>",
		"xl/media/image1.png": "pngbytes",
	})

	c, err := OpenContainer(data)
	require.NoError(t, err)

	assert.True(t, c.Has("xl/workbook.xml"))
	assert.False(t, c.Has("xl/missing.xml"))

	text, err := c.ReadText("xl/workbook.xml")
	require.NoError(t, err)
	assert.Equal(t, "<workbook/>", text)

	_, err = c.ReadBytes("nope")
	assert.Error(t, err)
}

func TestOpenContainerRejectsGarbage(t *testing.T) {
	_, err := OpenContainer([]byte("not a zip archive"))
	assert.Error(t, err)
}

func TestContainerList(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/media/image1.png": "a",
		"xl/media/image2.jpg": "b",
		"xl/workbook.xml":     "<workbook/>",
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)

	names := c.List("xl/media/")
	assert.Len(t, names, 2)
	for _, name := range names {
		assert.Contains(t, name, "xl/media/")
	}
}

func TestRelationships(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
			<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
				<Relationship Id="rId1" Type="t" Target="worksheets/sheet1.xml"/>
				<Relationship Id="rId2" Type="t" Target="../media/image1.png"/>
			</Relationships>`,
	})
	c, err := OpenContainer(data)
	require.NoError(t, err)

	rels, err := c.Relationships("xl/_rels/workbook.xml.rels")
	require.NoError(t, err)
	assert.Equal(t, "worksheets/sheet1.xml", rels["rId1"])
	assert.Equal(t, "../media/image1.png", rels["rId2"])

	// A missing rels part is not an error, just no relationships.
	rels, err = c.Relationships("xl/_rels/absent.rels")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "xl/worksheets/sheet1.xml", ResolveTarget("xl", "worksheets/sheet1.xml"))
	assert.Equal(t, "xl/media/image1.png", ResolveTarget("xl/worksheets", "../media/image1.png"))
	assert.Equal(t, "xl/media/image1.png", ResolveTarget("xl/drawings", "/xl/media/image1.png"))
}
