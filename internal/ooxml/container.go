package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Container reads named entries out of an .xlsx ZIP archive. It is the
// leaf dependency for every OOXML-aware component.
type Container struct {
	reader  *zip.Reader
	entries map[string]*zip.File
}

// OpenContainer opens the workbook bytes as a ZIP container.
func OpenContainer(data []byte) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook container: %w", err)
	}
	c := &Container{
		reader:  zr,
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		c.entries[normalizeEntryName(f.Name)] = f
	}
	return c, nil
}

func normalizeEntryName(name string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, "\\", "/")), "/")
}

// Has reports whether the named entry exists.
func (c *Container) Has(name string) bool {
	_, ok := c.entries[normalizeEntryName(name)]
	return ok
}

// ReadBytes returns the raw content of the named entry.
func (c *Container) ReadBytes(name string) ([]byte, error) {
	f, ok := c.entries[normalizeEntryName(name)]
	if !ok {
		return nil, fmt.Errorf("entry %s not found in container", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
	}
	return data, nil
}

// ReadText returns the content of the named entry as a string.
func (c *Container) ReadText(name string) (string, error) {
	data, err := c.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// List returns the entry names under the given prefix, in archive order.
func (c *Container) List(prefix string) []string {
	prefix = normalizeEntryName(prefix)
	var names []string
	for _, f := range c.reader.File {
		name := normalizeEntryName(f.Name)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// Relationships parses a .rels part into relationship id → target pairs.
// Targets are kept as written (they may be relative to the part's folder).
func (c *Container) Relationships(name string) (map[string]string, error) {
	if !c.Has(name) {
		return map[string]string{}, nil
	}
	doc, err := c.ReadText(name)
	if err != nil {
		return nil, err
	}
	rels := make(map[string]string)
	for _, rel := range ElementsByTagName(doc, "Relationship") {
		id := rel.Attr("Id")
		target := rel.Attr("Target")
		if id != "" && target != "" {
			rels[id] = target
		}
	}
	return rels, nil
}

// ResolveTarget resolves a relationship target against the folder of the
// part that owns the relationship file (e.g. "../media/image1.png" seen
// from "xl/worksheets" becomes "xl/media/image1.png").
func ResolveTarget(baseDir, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return normalizeEntryName(target)
	}
	return normalizeEntryName(path.Join(baseDir, target))
}
