package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/models"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	// ContentFailedText is returned when the model answers with no text.
	ContentFailedText = "Content generation failed"
	// ContentErrorText is returned when the content call fails.
	ContentErrorText = "Error generating content"
)

var (
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("Empty response from AI model")
	// ErrNotConfigured indicates no API key was configured.
	ErrNotConfigured = errors.New("generative model not configured")
)

// ContentGenerator is the subset of the genai models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ReportStructure is the generated outline of a report.
type ReportStructure struct {
	Title    string           `json:"title"`
	Sections []models.Section `json:"sections"`
	Insights []string         `json:"insights"`
}

// Generator produces report structures, insights and section text.
type Generator struct {
	models         ContentGenerator
	structureModel string
	contentModel   string
}

// New builds a Generator backed by the Gemini API. An empty API key yields a
// Generator whose calls fail with ErrNotConfigured.
func New(ctx context.Context, cfg config.GeminiConfig) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewWithClient(nil, cfg.StructureModel, cfg.ContentModel), nil
	}
	client, errClient := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if errClient != nil {
		return nil, fmt.Errorf("generator: create client: %w", errClient)
	}
	return NewWithClient(client.Models, cfg.StructureModel, cfg.ContentModel), nil
}

// NewWithClient builds a Generator around an existing content generator.
func NewWithClient(models ContentGenerator, structureModel, contentModel string) *Generator {
	if strings.TrimSpace(structureModel) == "" {
		structureModel = "gemini-2.5-pro"
	}
	if strings.TrimSpace(contentModel) == "" {
		contentModel = "gemini-2.5-flash"
	}
	return &Generator{models: models, structureModel: structureModel, contentModel: contentModel}
}

// Configured reports whether a model backend is available.
func (g *Generator) Configured() bool {
	return g != nil && g.models != nil
}

// GenerateStructure asks the model for a report outline in a single
// schema-constrained call. The reply is only JSON-decoded, not validated.
func (g *Generator) GenerateStructure(ctx context.Context, prompt, dataSourceType string) (*ReportStructure, error) {
	structure, errGenerate := g.generateStructure(ctx, prompt, dataSourceType)
	if errGenerate != nil {
		log.WithError(errGenerate).Error("generator: failed to generate report structure")
		return nil, fmt.Errorf("AI report generation failed: %w", errGenerate)
	}
	return structure, nil
}

func (g *Generator) generateStructure(ctx context.Context, prompt, dataSourceType string) (*ReportStructure, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}
	resp, errCall := g.models.GenerateContent(ctx, g.structureModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(structureInstruction(prompt, dataSourceType), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    structureSchema(),
	})
	if errCall != nil {
		return nil, errCall
	}
	raw := responseText(resp)
	if raw == "" {
		return nil, ErrEmptyResponse
	}
	var structure ReportStructure
	if errUnmarshal := json.Unmarshal([]byte(raw), &structure); errUnmarshal != nil {
		return nil, fmt.Errorf("decode response: %w", errUnmarshal)
	}
	return &structure, nil
}

// GenerateInsights returns 3-5 short insights about data. Failures are logged
// and produce an empty list.
func (g *Generator) GenerateInsights(ctx context.Context, data any, reportType string) []string {
	if !g.Configured() {
		return []string{}
	}
	payload, errMarshal := json.MarshalIndent(data, "", "  ")
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("generator: marshal insight data")
		return []string{}
	}
	prompt := fmt.Sprintf("Analyze this %s data and provide 3-5 key business insights:\n\nData: %s\n\nProvide insights as a JSON array of strings.", reportType, payload)

	resp, errCall := g.models.GenerateContent(ctx, g.contentModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	})
	if errCall != nil {
		log.WithError(errCall).Warn("generator: failed to generate insights")
		return []string{}
	}
	raw := responseText(resp)
	if raw == "" {
		return []string{}
	}
	var insights []string
	if errUnmarshal := json.Unmarshal([]byte(raw), &insights); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warn("generator: decode insights")
		return []string{}
	}
	return insights
}

// GenerateSectionContent writes free text for a section, optionally grounded on data.
func (g *Generator) GenerateSectionContent(ctx context.Context, section models.Section, data any) string {
	if !g.Configured() {
		return ContentErrorText
	}
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Generate content for a report section titled %q of type %q.", section.Title, string(section.Type))
	if data != nil {
		payload, errMarshal := json.MarshalIndent(data, "", "  ")
		if errMarshal == nil {
			fmt.Fprintf(&prompt, "\n\nUse this data: %s", payload)
		}
	}
	if section.Type == models.SectionTypeText {
		prompt.WriteString("\n\nGenerate 2-3 paragraphs of analytical text content.")
	}

	resp, errCall := g.models.GenerateContent(ctx, g.contentModel, genai.Text(prompt.String()), nil)
	if errCall != nil {
		log.WithError(errCall).Warn("generator: failed to generate section content")
		return ContentErrorText
	}
	if text := responseText(resp); text != "" {
		return text
	}
	return ContentFailedText
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		out.WriteString(part.Text)
	}
	return strings.TrimSpace(out.String())
}
