package extractor

import (
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// BlockSelector locates the descriptive block on a detail page.
const BlockSelector = "div.col-12.col-lg-7.border-sm-end"

// ErrMissingBlock is returned when a page has no usable detail block.
var ErrMissingBlock = errors.New("detail block not found")

// Block is the text of a detail block split into the two segments the
// extractor reads: the synopsis and the labelled info list.
type Block struct {
	Description string
	Info        string
}

// ParseBlock reads the content segments of sel. The second segment is the
// description, the third carries the labelled fields.
func ParseBlock(sel *goquery.Selection) (Block, error) {
	if sel == nil || sel.Length() == 0 {
		return Block{}, ErrMissingBlock
	}
	var segments []string
	sel.First().Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				return
			}
		case html.ElementNode:
		default:
			return
		}
		segments = append(segments, strippedText(n))
	})
	if len(segments) < 3 {
		return Block{}, ErrMissingBlock
	}
	return Block{Description: segments[1], Info: segments[2]}, nil
}

// BlockFromHTML parses a full detail page and returns its block.
func BlockFromHTML(r io.Reader) (Block, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Block{}, err
	}
	return ParseBlock(doc.Find(BlockSelector))
}

// strippedText joins every descendant text node, each trimmed, with no
// separator.
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.TrimSpace(n.Data))
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
