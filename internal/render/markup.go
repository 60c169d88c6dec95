// Package render lays out report narratives as PDF documents.
//
// Narratives come back from the model as loose markdown. Only the few
// constructs models actually use are honoured: "## " and "### " headings,
// "- " or "* " bullets, **bold** spans and blank lines. Everything else is
// set as a plain paragraph.
package render

import (
	"regexp"
	"strings"
)

// BlockKind classifies one line of narrative.
type BlockKind int

const (
	Blank BlockKind = iota
	Heading
	Subheading
	Bullet
	Paragraph
)

// Span is a run of text with one weight.
type Span struct {
	Text string
	Bold bool
}

// Block is one laid-out line.
type Block struct {
	Kind  BlockKind
	Spans []Span
}

// Text joins the block's spans.
func (b Block) Text() string {
	var s strings.Builder
	for _, sp := range b.Spans {
		s.WriteString(sp.Text)
	}
	return s.String()
}

var (
	starBullet = regexp.MustCompile(`(?m)^\*\s+`)
	boldSpan   = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Parse splits narrative text into blocks. An inline ":-" starts a new bullet
// line, since models often run a list on after a colon.
func Parse(body string) []Block {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, ":-", ":\n-")
	body = starBullet.ReplaceAllString(body, "- ")

	lines := strings.Split(body, "\n")
	out := make([]Block, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			out = append(out, Block{Kind: Blank})
		case strings.HasPrefix(line, "### "):
			out = append(out, Block{Kind: Subheading, Spans: plain(stripBold(strings.TrimPrefix(line, "### ")))})
		case strings.HasPrefix(line, "## "):
			out = append(out, Block{Kind: Heading, Spans: plain(stripBold(strings.TrimPrefix(line, "## ")))})
		case strings.HasPrefix(line, "# "):
			out = append(out, Block{Kind: Heading, Spans: plain(stripBold(strings.TrimPrefix(line, "# ")))})
		case strings.HasPrefix(line, "- "):
			out = append(out, Block{Kind: Bullet, Spans: spans(strings.TrimSpace(line[2:]))})
		default:
			out = append(out, Block{Kind: Paragraph, Spans: spans(line)})
		}
	}
	return out
}

func plain(s string) []Span { return []Span{{Text: s}} }

func stripBold(s string) string { return boldSpan.ReplaceAllString(s, "$1") }

// spans splits s on **bold** markers. Unmatched markers stay literal.
func spans(s string) []Span {
	idx := boldSpan.FindAllStringSubmatchIndex(s, -1)
	if len(idx) == 0 {
		return plain(s)
	}
	var out []Span
	prev := 0
	for _, m := range idx {
		if m[0] > prev {
			out = append(out, Span{Text: s[prev:m[0]]})
		}
		if m[3] > m[2] {
			out = append(out, Span{Text: s[m[2]:m[3]], Bold: true})
		}
		prev = m[1]
	}
	if prev < len(s) {
		out = append(out, Span{Text: s[prev:]})
	}
	return out
}
