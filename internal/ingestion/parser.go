package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yungbote/hansard-backend/internal/domain"
)

var timestampPattern = regexp.MustCompile(`(?i)^\d{1,2}\.\d{2}\s*(am|pm|noon)$`)

// ParseSections normalizes section HTML into the ordered segment stream.
// The walk is a forward scan over each section's top-level children; no
// selector machinery, because upstream markup is frequently malformed.
func ParseSections(transcriptID string, sections []domain.RawSection) []domain.Segment {
	b := &segmentBuilder{transcriptID: transcriptID}
	for _, sec := range sections {
		b.parseSection(sec)
	}
	b.flush()
	return b.segments
}

type segmentBuilder struct {
	transcriptID string
	segments     []domain.Segment
	nextIndex    int

	current *pendingSegment
}

type pendingSegment struct {
	speaker         string
	parts           []string
	timestamp       string
	sectionTitle    string
	sectionType     string
	subsectionTitle string
	pageNo          int
}

func (b *segmentBuilder) parseSection(sec domain.RawSection) {
	// Segments never span sections.
	b.flush()

	if strings.TrimSpace(sec.Content) == "" {
		return
	}
	doc, err := html.Parse(strings.NewReader(sec.Content))
	if err != nil {
		return
	}
	body := findBody(doc)
	if body == nil {
		return
	}

	// A heading timestamp applies to every segment started after it within
	// the section, until the next heading replaces it.
	timestamp := ""
	subsection := ""

	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch {
		case isHeading(child.DataAtom):
			txt := cleanText(child)
			if timestampPattern.MatchString(txt) {
				timestamp = txt
			} else if txt != "" {
				subsection = txt
			}
		case child.DataAtom == atom.P:
			b.handleParagraph(child, sec, timestamp, subsection)
		}
	}
}

func (b *segmentBuilder) handleParagraph(p *html.Node, sec domain.RawSection, timestamp, subsection string) {
	label := leadingLabel(p)
	if label == nil {
		// Continuation only when a segment is open; otherwise the paragraph
		// is narration noise and gets discarded.
		txt := cleanText(p)
		if txt == "" || b.current == nil {
			return
		}
		b.current.parts = append(b.current.parts, txt)
		return
	}

	speaker := cleanText(label)
	rest := textAfter(p, label)

	// Both historical colon placements occur: "<strong>Name:</strong>" and
	// "<strong>Name</strong>:".
	if strings.HasSuffix(speaker, ":") {
		speaker = strings.TrimSpace(strings.TrimSuffix(speaker, ":"))
	} else {
		trimmed := strings.TrimLeft(rest, " ")
		if strings.HasPrefix(trimmed, ":") {
			rest = strings.TrimPrefix(trimmed, ":")
		}
	}
	text := collapseWhitespace(rest)

	b.flush()
	b.current = &pendingSegment{
		speaker:         speaker,
		timestamp:       timestamp,
		sectionTitle:    sec.Title,
		sectionType:     sec.Type,
		subsectionTitle: subsection,
		pageNo:          sec.PageNo,
	}
	if text != "" {
		b.current.parts = append(b.current.parts, text)
	}
}

func (b *segmentBuilder) flush() {
	if b.current == nil {
		return
	}
	text := strings.Join(b.current.parts, " ")
	cur := b.current
	b.current = nil
	if text == "" {
		return
	}
	b.segments = append(b.segments, domain.Segment{
		ID:              fmt.Sprintf("%s-%d", b.transcriptID, b.nextIndex),
		Speaker:         cur.speaker,
		Text:            text,
		Timestamp:       cur.timestamp,
		SectionTitle:    cur.sectionTitle,
		SectionType:     cur.sectionType,
		SubsectionTitle: cur.subsectionTitle,
		PageNo:          cur.pageNo,
		Index:           b.nextIndex,
		WordCount:       len(strings.Fields(text)),
		CharCount:       len([]rune(text)),
	})
	b.nextIndex++
}

// leadingLabel returns the paragraph's speaker label node when its first
// meaningful child is strong emphasis.
func leadingLabel(p *html.Node) *html.Node {
	for child := p.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if strings.TrimSpace(child.Data) != "" {
				return nil
			}
		case html.ElementNode:
			if child.DataAtom == atom.Strong || child.DataAtom == atom.B {
				if cleanText(child) == "" {
					return nil
				}
				return child
			}
			return nil
		}
	}
	return nil
}

// textAfter collects the raw text of every sibling after the label node.
// Leading-colon handling needs the uncollapsed form, so whitespace is
// preserved here.
func textAfter(p *html.Node, label *html.Node) string {
	var sb strings.Builder
	for sib := label.NextSibling; sib != nil; sib = sib.NextSibling {
		collectText(sib, &sb)
	}
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}

// cleanText is the plain-text extraction: tags stripped, entities already
// decoded by the parser, whitespace runs collapsed, ends trimmed.
func cleanText(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return collapseWhitespace(sb.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return body
}
