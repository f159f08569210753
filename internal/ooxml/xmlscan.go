package ooxml

import (
	"regexp"
	"strings"
	"sync"
)

// Minimal regex-based XML matcher. The OOXML fragments this package reads
// (relationships, drawings, cell-image lists, worksheet cells) have a
// known finite shape, so a narrow adapter is enough; this is deliberately
// not a general XML parser. Known gaps: CDATA sections, nested elements of
// the same tag name, and comments containing markup are not handled.

// Element is one matched XML element.
type Element struct {
	Tag   string
	Raw   string // full match including the tags
	Attrs string // raw attribute text of the opening tag
	Inner string // inner markup; empty for self-closing elements
}

var (
	elemCacheMu sync.Mutex
	elemCache   = map[string]*regexp.Regexp{}
)

func elementPattern(tag string) *regexp.Regexp {
	elemCacheMu.Lock()
	defer elemCacheMu.Unlock()
	if re, ok := elemCache[tag]; ok {
		return re
	}
	// Matches <tag .../> and <tag ...>inner</tag>, with or without a
	// namespace prefix on the tag.
	quoted := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?s)<(?:[A-Za-z0-9_.-]+:)?` + quoted +
		`((?:\s[^>]*?)?)(?:/>|>(.*?)</(?:[A-Za-z0-9_.-]+:)?` + quoted + `\s*>)`)
	elemCache[tag] = re
	return re
}

// ElementsByTagName returns every occurrence of tag in doc, ignoring any
// namespace prefix on the tag itself.
func ElementsByTagName(doc, tag string) []Element {
	matches := elementPattern(tag).FindAllStringSubmatch(doc, -1)
	out := make([]Element, 0, len(matches))
	for _, m := range matches {
		out = append(out, Element{
			Tag:   tag,
			Raw:   m[0],
			Attrs: strings.TrimSpace(m[1]),
			Inner: m[2],
		})
	}
	return out
}

// FirstElement returns the first occurrence of tag in doc, if any.
func FirstElement(doc, tag string) (Element, bool) {
	elems := ElementsByTagName(doc, tag)
	if len(elems) == 0 {
		return Element{}, false
	}
	return elems[0], true
}

var attrPattern = regexp.MustCompile(`([A-Za-z0-9_.-]+(?::[A-Za-z0-9_.-]+)?)\s*=\s*("([^"]*)"|'([^']*)')`)

// Attr reads the named attribute from the element's opening tag. The name
// is compared both with and without its namespace prefix; a missing
// attribute yields "".
func (e Element) Attr(name string) string {
	for _, m := range attrPattern.FindAllStringSubmatch(e.Attrs, -1) {
		key := m[1]
		local := key
		if i := strings.IndexByte(key, ':'); i >= 0 {
			local = key[i+1:]
		}
		if key == name || local == name {
			val := m[3]
			if val == "" {
				val = m[4]
			}
			return DecodeEntities(val)
		}
	}
	return ""
}

// Text returns the element's inner content with markup stripped and
// entities decoded.
func (e Element) Text() string {
	return DecodeEntities(stripTags(e.Inner))
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// DecodeEntities resolves the five predefined XML entities.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityReplacer.Replace(s)
}
