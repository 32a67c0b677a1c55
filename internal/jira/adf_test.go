package jira

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoc_SerializesToADF(t *testing.T) {
	doc := Doc(
		Heading(2, "Objective"),
		Paragraph("Fix the thing"),
		Rule(),
	)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "doc", decoded["type"])
	assert.Equal(t, float64(1), decoded["version"])

	content := decoded["content"].([]any)
	require.Len(t, content, 3)

	heading := content[0].(map[string]any)
	assert.Equal(t, "heading", heading["type"])
	assert.Equal(t, float64(2), heading["attrs"].(map[string]any)["level"])

	rule := content[2].(map[string]any)
	assert.Equal(t, "rule", rule["type"])
	// A rule node carries no content, text, or version.
	_, hasContent := rule["content"]
	assert.False(t, hasContent)
}

func TestParagraph_WrapsText(t *testing.T) {
	p := Paragraph("hello")
	require.Len(t, p.Content, 1)
	assert.Equal(t, "text", p.Content[0].Type)
	assert.Equal(t, "hello", p.Content[0].Text)
}
