package jira

// Node is one Atlassian Document Format (ADF) node. ADF is the JSON
// format Jira's REST API v3 requires for rich text fields.
type Node struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Mark decorates a text node (e.g. strong).
type Mark struct {
	Type string `json:"type"`
}

// Doc wraps content nodes into a version-1 ADF document.
func Doc(content ...Node) Node {
	return Node{Type: "doc", Version: 1, Content: content}
}

// Heading returns a heading node at the given level.
func Heading(level int, text string) Node {
	return Node{
		Type:    "heading",
		Attrs:   map[string]any{"level": level},
		Content: []Node{Text(text)},
	}
}

// Paragraph returns a paragraph containing a single text node.
func Paragraph(text string) Node {
	return Node{Type: "paragraph", Content: []Node{Text(text)}}
}

// Text returns a plain text node.
func Text(text string) Node {
	return Node{Type: "text", Text: text}
}

// Rule returns a horizontal rule node.
func Rule() Node {
	return Node{Type: "rule"}
}
