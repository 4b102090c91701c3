package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownText strips markdown syntax and returns the readable text, one
// block per paragraph. Table rows keep their cells separated by " | ".
func MarkdownText(content []byte) string {
	doc := markdownParser.Parser().Parse(text.NewReader(content))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if s := blockText(n, content); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func blockText(n ast.Node, content []byte) string {
	switch v := n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return strings.TrimSpace(string(linesOf(v, content)))
	case *ast.List:
		var items []string
		for item := v.FirstChild(); item != nil; item = item.NextSibling() {
			if s := nodeText(item, content); s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, "\n")
	case *extast.Table:
		var rows []string
		for row := v.FirstChild(); row != nil; row = row.NextSibling() {
			if s := tableRowText(row, content); s != "" {
				rows = append(rows, s)
			}
		}
		return strings.Join(rows, "\n")
	case *ast.ThematicBreak, *ast.HTMLBlock:
		return ""
	}
	return nodeText(n, content)
}

func linesOf(n ast.Node, content []byte) []byte {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(content)...)
	}
	return out
}

func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Kind() == ast.KindParagraph || node.Kind() == ast.KindTextBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.Write(linesOf(v, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, nodeText(cell, content))
	}
	return strings.Join(cells, " | ")
}
