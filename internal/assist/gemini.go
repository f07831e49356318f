package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// GeminiClient talks to a Gemini-style generateContent REST endpoint.
// Classification uses the stronger model with a JSON response schema;
// summarization and reply suggestion use the lighter text model.
type GeminiClient struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	classifyModel string
	textModel     string
}

// NewGeminiClient builds the remote client from configuration.
func NewGeminiClient(cfg config.AssistConfig) *GeminiClient {
	return &GeminiClient{
		httpClient:    &http.Client{Timeout: cfg.Timeout()},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		classifyModel: cfg.ClassifyModel,
		textModel:     cfg.TextModel,
	}
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlineDataPart `json:"inline_data,omitempty"`
}

type inlineDataPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify asks the remote model for a category and priority verdict.
// Image attachments (base64 payloads) are forwarded to confirm the
// category.
func (c *GeminiClient) Classify(ctx context.Context, title, description string, attachments []string) (Classification, error) {
	prompt := fmt.Sprintf(`Classify the following helpdesk ticket title and description into one of these categories: %s.
Also provide a priority recommendation: LOW, MEDIUM, HIGH, URGENT.
If images are provided, use them to confirm the category.
Respond as JSON with fields "category" and "priority".

Title: %s
Description: %s`, strings.Join(domain.Categories, ", "), title, description)

	parts := []generatePart{{Text: prompt}}
	for _, attachment := range attachments {
		data := attachment
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:] // strip any data:image/...;base64, prefix
		}
		parts = append(parts, generatePart{InlineData: &inlineDataPart{MimeType: "image/jpeg", Data: data}})
	}

	text, err := c.generate(ctx, c.classifyModel, parts, &generationConfig{ResponseMimeType: "application/json"})
	if err != nil {
		return Classification{}, err
	}

	var verdict struct {
		Category string `json:"category"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &verdict); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	return Classification{
		Category: verdict.Category,
		Priority: domain.TicketPriority(strings.ToUpper(verdict.Priority)),
	}, nil
}

// Summarize asks the remote model for a concise conversation summary.
func (c *GeminiClient) Summarize(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following helpdesk ticket and its conversation history.
Provide a concise summary of the issue, current status, and next steps.

Ticket Title: %s
Description: %s
Conversation:
%s`, ticket.Title, ticket.Description, renderThread(comments))

	return c.generate(ctx, c.textModel, []generatePart{{Text: prompt}}, nil)
}

// SuggestReply asks the remote model to draft a response to the latest
// client message.
func (c *GeminiClient) SuggestReply(ctx context.Context, ticket domain.Ticket, comments []domain.Comment) (string, error) {
	lastClientMessage := "No client messages yet."
	for i := len(comments) - 1; i >= 0; i-- {
		if comments[i].AuthorID == ticket.CreatorID {
			lastClientMessage = comments[i].Body
			break
		}
	}

	prompt := fmt.Sprintf(`As a helpdesk professional (PIC), suggest a helpful and polite response to the following ticket.

Ticket: %s
Context: %s
Last client message: %s

Provide exactly one suggested response.`, ticket.Title, ticket.Description, lastClientMessage)

	return c.generate(ctx, c.textModel, []generatePart{{Text: prompt}}, nil)
}

func (c *GeminiClient) generate(ctx context.Context, model string, parts []generatePart, genCfg *generationConfig) (string, error) {
	var reqBody generateRequest
	reqBody.Contents = append(reqBody.Contents, struct {
		Parts []generatePart `json:"parts"`
	}{Parts: parts})
	reqBody.GenerationConfig = genCfg

	payload, err := json.Marshal(&reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate content: status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model %s", model)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func renderThread(comments []domain.Comment) string {
	if len(comments) == 0 {
		return "(no comments)"
	}
	lines := make([]string, 0, len(comments))
	for _, comment := range comments {
		lines = append(lines, comment.AuthorID+": "+comment.Body)
	}
	return strings.Join(lines, "\n")
}
