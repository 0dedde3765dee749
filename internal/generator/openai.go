package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/avolab/guideline-api/internal/client"
	"github.com/avolab/guideline-api/internal/model"
)

const sourceOpenAI = "openai"

// OpenAIGenerator produces summaries and checklists through the OpenAI
// chat-completions API.
//
// Transport and API errors are returned to the caller and fail the job.
// A response that arrives but cannot be parsed into the expected structure
// degrades to the documented default payload with an error-level log; a
// generative backend drifting on output format should not fail the job.
type OpenAIGenerator struct {
	client *client.OpenAIClient
}

func NewOpenAIGenerator(c *client.OpenAIClient) *OpenAIGenerator {
	return &OpenAIGenerator{client: c}
}

func (g *OpenAIGenerator) Summarize(ctx context.Context, guidelineText string) (*model.Summary, error) {
	if guidelineText == "" {
		guidelineText = DefaultGuidelineDocument
	}

	response, err := g.client.ChatCompletion(ctx,
		summarySystemPrompt,
		buildSummaryPrompt(guidelineText),
		0.3, 1000)
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	summary, err := parseSummary(response)
	if err != nil {
		log.Printf("ERROR: malformed summary output, using default: %v", err)
		return defaultSummary(), nil
	}

	summary.Source = sourceOpenAI
	summary.Model = g.client.Model()
	return summary, nil
}

func (g *OpenAIGenerator) Checklist(ctx context.Context, summary *model.Summary) (*model.Checklist, error) {
	response, err := g.client.ChatCompletion(ctx,
		checklistSystemPrompt,
		buildChecklistPrompt(summary),
		0.2, 1500)
	if err != nil {
		return nil, fmt.Errorf("checklist generation failed: %w", err)
	}

	checklist, err := parseChecklist(response)
	if err != nil {
		log.Printf("ERROR: malformed checklist output, using default: %v", err)
		return defaultChecklist(), nil
	}

	checklist.Source = sourceOpenAI
	checklist.Model = g.client.Model()
	return checklist, nil
}

const summarySystemPrompt = `You are an expert at analyzing and summarizing software development documents.
Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`

const checklistSystemPrompt = `You are an expert at writing software development checklists.
Produce practical, concrete checklist items as valid JSON only.
Do not include any text outside the JSON structure.`

func buildSummaryPrompt(guidelineText string) string {
	return fmt.Sprintf(`Analyze the following software development guidelines and summarize the core content.

Guidelines:
%s

Respond in this JSON format:
{
  "title": "title of the guidelines",
  "content": "overall summary of the guidelines (2-3 sentences)",
  "key_points": ["key point 1", "key point 2", "key point 3"],
  "word_count": number_of_words
}`, guidelineText)
}

func buildChecklistPrompt(summary *model.Summary) string {
	return fmt.Sprintf(`Based on the following guideline summary, create a checklist developers can use.

Summary:
Title: %s
Content: %s
Key points: %s

Respond in this JSON format:
{
  "categories": [
    {
      "name": "category name",
      "items": [
        {"id": 1, "text": "thing to check (as a question)", "required": true}
      ]
    }
  ],
  "total_items": total_item_count,
  "required_items": required_item_count
}

Create 4-5 categories with 3-5 items each.`,
		summary.Title, summary.Content, strings.Join(summary.KeyPoints, ", "))
}

func parseSummary(response string) (*model.Summary, error) {
	var summary model.Summary
	if err := json.Unmarshal([]byte(extractJSON(response)), &summary); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if summary.Title == "" && summary.Content == "" {
		return nil, fmt.Errorf("empty summary in response")
	}
	return &summary, nil
}

func parseChecklist(response string) (*model.Checklist, error) {
	var checklist model.Checklist
	if err := json.Unmarshal([]byte(extractJSON(response)), &checklist); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(checklist.Categories) == 0 {
		return nil, fmt.Errorf("no categories in response")
	}
	return &checklist, nil
}
