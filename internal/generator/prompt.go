package generator

import (
	"fmt"

	"google.golang.org/genai"
)

func structureInstruction(prompt, dataSourceType string) string {
	return fmt.Sprintf(`You are an AI report generator expert.
Based on the user's request and data source type, generate a comprehensive report structure.
Consider the data source capabilities and create relevant sections with appropriate chart types.

Data source: %s
User request: %s

Respond with JSON in this exact format:
{
  "title": "Report Title",
  "sections": [
    {
      "id": "unique-id",
      "title": "Section Title",
      "type": "chart|text|table",
      "chartType": "bar|line|pie|area",
      "content": "Text content for text sections"
    }
  ],
  "insights": ["Key insight 1", "Key insight 2"]
}`, dataSourceType, prompt)
}

func structureSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str(),
			"sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":        str(),
						"title":     str(),
						"type":      str(),
						"chartType": str(),
						"content":   str(),
					},
					Required: []string{"id", "title", "type"},
				},
			},
			"insights": {
				Type:  genai.TypeArray,
				Items: str(),
			},
		},
		Required: []string{"title", "sections", "insights"},
	}
}
