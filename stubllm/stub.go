// Package stubllm provides a deterministic inference client for tests and
// local runs without an API key.
package stubllm

import (
	"context"
	"encoding/json"

	"github.com/saiganesh141124/flora-intel/models"
)

// Client returns a canned healthy analysis for every image. Set Reply or Err
// to override the behavior per test.
type Client struct {
	Reply string
	Err   error
	// Calls counts AnalyzeImage invocations.
	Calls int
}

func New() *Client {
	return &Client{}
}

func (c *Client) SourceName() string {
	return "Stub"
}

func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, contentType string) (string, error) {
	c.Calls++
	if c.Err != nil {
		return "", c.Err
	}
	if c.Reply != "" {
		return c.Reply, nil
	}

	result := models.AnalysisResult{
		HealthScore:          95,
		Status:               models.StatusHealthy,
		PathogenType:         models.PathogenNone,
		Confidence:           99,
		MicroscopicAnalysis:  "Stubbed analysis: uniform cell structure, no pathogen indicators.",
		VisibleSymptoms:      []string{},
		AffectedAreas:        []string{},
		Recommendations:      []string{"Keep doing what you are doing"},
		PreventiveMeasures:   []string{"Routine inspection"},
		EcoFriendlyTreats:    []string{},
		EstimatedProgression: "Stable",
	}
	data, _ := json.Marshal(result)
	return "```json\n" + string(data) + "\n```", nil
}
