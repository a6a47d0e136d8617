package converter

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

// treeRenderer walks a structured content tree and emits markdown lines.
// Rendering is a pure function of the tree: no timestamps, no randomness,
// no map iteration, so output is reproducible byte for byte.
type treeRenderer struct {
	lines       []string
	listDepth   int
	unsupported []string
}

func newTreeRenderer() *treeRenderer {
	return &treeRenderer{}
}

// render converts a document root node to markdown. Non-root nodes are
// tolerated and rendered as if they were the document body.
func (r *treeRenderer) render(root *models.ContentNode) string {
	if root == nil {
		return ""
	}

	if root.Type == "doc" {
		for i := range root.Content {
			r.renderNode(&root.Content[i], false)
		}
	} else {
		r.renderNode(root, false)
	}

	markdown := strings.Join(r.lines, "\n")

	// Collapse runs of blank lines to a single blank line
	for strings.Contains(markdown, "\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(markdown)
}

func (r *treeRenderer) renderNode(node *models.ContentNode, inListItem bool) {
	switch node.Type {
	case "heading":
		r.renderHeading(node)
	case "paragraph":
		r.renderParagraph(node, inListItem)
	case "bulletList":
		r.renderBulletList(node)
	case "orderedList":
		r.renderOrderedList(node)
	case "codeBlock":
		r.renderCodeBlock(node)
	case "blockquote":
		r.renderBlockquote(node)
	case "horizontalRule":
		r.lines = append(r.lines, "---", "")
	case "hardBreak":
		r.lines = append(r.lines, "")
	default:
		// Unknown node: degrade to its plain text so content is not lost
		r.unsupported = append(r.unsupported, node.Type)
		text := extractText(node.Content, false)
		if strings.TrimSpace(text) != "" {
			r.lines = append(r.lines, text)
		}
	}
}

func (r *treeRenderer) renderHeading(node *models.ContentNode) {
	level := node.Level()
	if level < 1 {
		level = 1
	}
	text := extractText(node.Content, false)
	r.lines = append(r.lines, strings.Repeat("#", level)+" "+text, "")
}

func (r *treeRenderer) renderParagraph(node *models.ContentNode, inListItem bool) {
	text := extractText(node.Content, false)
	if strings.TrimSpace(text) == "" {
		return
	}

	if inListItem {
		// Continuation paragraphs stay indented under their list item
		indent := strings.Repeat("  ", r.listDepth)
		r.lines = append(r.lines, indent+text)
	} else {
		r.lines = append(r.lines, text, "")
	}
}

func (r *treeRenderer) renderBulletList(node *models.ContentNode) {
	r.listDepth++
	for i := range node.Content {
		item := &node.Content[i]
		if item.Type == "listItem" {
			r.renderListItem(item, "-")
		}
	}
	r.listDepth--

	if r.listDepth == 0 {
		r.lines = append(r.lines, "")
	}
}

func (r *treeRenderer) renderOrderedList(node *models.ContentNode) {
	r.listDepth++
	position := 0
	for i := range node.Content {
		item := &node.Content[i]
		if item.Type == "listItem" {
			position++
			r.renderListItem(item, fmt.Sprintf("%d.", position))
		}
	}
	r.listDepth--

	if r.listDepth == 0 {
		r.lines = append(r.lines, "")
	}
}

func (r *treeRenderer) renderListItem(node *models.ContentNode, bullet string) {
	if len(node.Content) == 0 {
		return
	}

	indent := strings.Repeat("  ", r.listDepth-1)
	first := &node.Content[0]

	if first.Type == "paragraph" {
		text := extractText(first.Content, false)
		r.lines = append(r.lines, indent+bullet+" "+text)

		for i := 1; i < len(node.Content); i++ {
			child := &node.Content[i]
			switch child.Type {
			case "paragraph":
				r.renderParagraph(child, true)
			case "bulletList", "orderedList":
				r.renderNode(child, false)
			}
		}
	} else {
		r.renderNode(first, false)
	}
}

func (r *treeRenderer) renderCodeBlock(node *models.ContentNode) {
	language := node.Attr("language")
	text := extractText(node.Content, true)
	r.lines = append(r.lines, "```"+language, text, "```", "")
}

func (r *treeRenderer) renderBlockquote(node *models.ContentNode) {
	sub := newTreeRenderer()
	for i := range node.Content {
		sub.renderNode(&node.Content[i], false)
	}
	r.unsupported = append(r.unsupported, sub.unsupported...)

	inner := sub.lines
	for len(inner) > 0 && strings.TrimSpace(inner[len(inner)-1]) == "" {
		inner = inner[:len(inner)-1]
	}

	for _, line := range inner {
		if strings.TrimSpace(line) != "" {
			r.lines = append(r.lines, "> "+line)
		} else {
			r.lines = append(r.lines, ">")
		}
	}
	r.lines = append(r.lines, "")
}

// extractText flattens inline content to a formatted string, applying
// marks in order. Hard breaks become newlines inside code blocks and
// spaces elsewhere.
func extractText(content []models.ContentNode, preserveNewlines bool) string {
	if len(content) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := range content {
		node := &content[i]

		switch node.Type {
		case "text":
			sb.WriteString(applyMarks(node.Text, node.Marks))
		case "hardBreak":
			if preserveNewlines {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		default:
			if len(node.Content) > 0 {
				sb.WriteString(extractText(node.Content, preserveNewlines))
			}
		}
	}

	return sb.String()
}

func applyMarks(text string, marks []models.Mark) string {
	for _, mark := range marks {
		switch mark.Type {
		case "bold":
			text = "**" + text + "**"
		case "italic":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			href := ""
			if mark.Attrs != nil {
				if v, ok := mark.Attrs["href"].(string); ok {
					href = v
				}
			}
			text = "[" + text + "](" + href + ")"
		}
	}
	return text
}
