// Package mention extracts mentioned user identifiers from note bodies.
//
// Two forms are recognized: mention spans emitted by the rich text editor
// (<span class="mention" data-id="user">) and plain @handle tokens in markdown text.
// Handles inside code spans and code blocks are ignored.
package mention

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	spanRe   = regexp.MustCompile(`(?is)<span\b[^>]*\bclass\s*=\s*"[^"]*\bmention\b[^"]*"[^>]*>.*?</span>`)
	dataIDRe = regexp.MustCompile(`(?i)\bdata-id\s*=\s*"([^"]+)"`)
	handleRe = regexp.MustCompile(`(?:^|[^\w@])@([\w.+-]+(?:@[\w-]+(?:\.[\w-]+)+)?)`)
)

var parser = goldmark.New().Parser()

// Extract returns the unique, sorted set of user identifiers mentioned in body.
func Extract(body string) []string {
	if !strings.Contains(body, "@") && !strings.Contains(body, "mention") {
		return nil
	}

	seen := make(map[string]bool)

	// Editor spans carry the user id in data-id; the visible label is not used.
	stripped := spanRe.ReplaceAllStringFunc(body, func(span string) string {
		if m := dataIDRe.FindStringSubmatch(span); m != nil {
			if id := strings.TrimSpace(m[1]); id != "" {
				seen[id] = true
			}
		}
		return " "
	})

	src := []byte(stripped)
	masked := maskCode(src)
	for _, m := range handleRe.FindAllSubmatch(masked, -1) {
		if handle := strings.TrimRight(string(m[1]), ".-"); handle != "" {
			seen[handle] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// maskCode returns a copy of src with code and raw HTML blanked out. Handles are
// matched on the source rather than per text node, since goldmark splits text at
// emphasis delimiters such as the underscore in jane_doe.
func maskCode(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	blank := func(seg text.Segment) {
		for i := seg.Start; i < seg.Stop && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	blankLines := func(lines *text.Segments) {
		for i := 0; i < lines.Len(); i++ {
			blank(lines.At(i))
		}
	}

	doc := parser.Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					blank(t.Segment)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			blankLines(node.Lines())
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			blankLines(node.Lines())
			if node.HasClosure() {
				blank(node.ClosureLine)
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			blankLines(node.Segments)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}
