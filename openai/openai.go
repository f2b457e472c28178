package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saiganesh141124/flora-intel/apperrors"
)

const promptSystem = `You are an expert plant pathologist and agricultural scientist with deep knowledge of plant diseases, pests, and microscopic analysis. Analyze plant images to detect diseases, provide detailed microscopic-level insights, and recommend treatments.

Your analysis should include:
1. Overall plant health assessment
2. Disease identification (if any) with confidence level
3. Microscopic symptoms and cellular-level indicators
4. Pathogen identification (fungal, bacterial, viral, or pest-related)
5. Environmental stress indicators
6. Severity assessment (healthy, mild, moderate, severe, critical)
7. Specific recommendations for treatment and prevention
8. Eco-friendly and sustainable treatment options

Respond in JSON format with the following structure:
{
  "health_score": number (0-100),
  "status": "healthy" | "mild" | "moderate" | "severe" | "critical",
  "disease_detected": string or null,
  "pathogen_type": "fungal" | "bacterial" | "viral" | "pest" | "environmental" | "none",
  "confidence": number (0-100),
  "microscopic_analysis": string (detailed cellular-level observations),
  "visible_symptoms": string[],
  "affected_areas": string[],
  "recommendations": string[],
  "preventive_measures": string[],
  "eco_friendly_treatments": string[],
  "estimated_progression": string,
  "urgent_action_required": boolean
}`

const promptUser = "Analyze this plant image for diseases and provide a detailed microscopic analysis."

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls a vision-capable chat-completion endpoint.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a new inference client. A zero timeout leaves the
// request bound only by the caller's context.
func NewClient(apiKey, model, endpoint string, timeout time.Duration) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// SourceName identifies this provider in logs and saved analyses
func (c *Client) SourceName() string {
	return "ChatGPT"
}

// encodeImageToDataURL converts image bytes to a base64 data URL
func encodeImageToDataURL(imageData []byte, contentType string) string {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	base64Data := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64Data)
}

// AnalyzeImage sends the image to the inference service and returns the raw
// text of the first choice. HTTP-level failures are mapped to distinct error
// kinds: 429 to rate-limited, 402 to quota-exhausted, any other non-2xx to a
// generic upstream error, and a missing reply to empty-reply.
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, contentType string) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "system",
				Content: promptSystem,
			},
			{
				Role: "user",
				Content: []any{
					TextContent{Type: "text", Text: promptUser},
					ImageContent{Type: "image_url", ImageURL: ImageURL{URL: encodeImageToDataURL(imageData, contentType)}},
				},
			},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to create request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to read response body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", apperrors.Newf(apperrors.KindRateLimited, "inference service rate limit exceeded")
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", apperrors.Newf(apperrors.KindQuotaExhausted, "inference usage limit reached")
	case resp.StatusCode != http.StatusOK:
		return "", apperrors.Newf(apperrors.KindUpstream, "API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to parse response: %v", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", apperrors.Newf(apperrors.KindEmptyReply, "no choices in response")
	}

	// Extract the text content from the response
	content := chatResp.Choices[0].Message.Content
	if contentStr, ok := content.(string); ok {
		if contentStr == "" {
			return "", apperrors.Newf(apperrors.KindEmptyReply, "no analysis result received")
		}
		return contentStr, nil
	}

	if content == nil {
		return "", apperrors.Newf(apperrors.KindEmptyReply, "no analysis result received")
	}

	// If content is not a string, try to marshal it back to JSON
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", apperrors.Newf(apperrors.KindUpstream, "failed to marshal content: %v", err)
	}

	return string(contentJSON), nil
}
