package parser

import (
	"encoding/json"
	"strings"

	"github.com/saiganesh141124/flora-intel/models"
)

// Sentinel values used when the model reply cannot be parsed. The raw reply
// is preserved verbatim in microscopic_analysis so a human can still read it.
const (
	FallbackDisease        = "Analysis parsing error"
	fallbackSymptom        = "Unable to parse detailed analysis"
	fallbackAffectedArea   = "See microscopic analysis for details"
	fallbackRecommendation = "Please try again or consult with an agricultural expert"
	fallbackPrevention     = "Regular monitoring recommended"
)

// ParseAnalysis turns a raw model reply into a validated analysis result.
// It never fails: replies that are not well-formed JSON matching the schema,
// or that carry out-of-range scores or unrecognized enum values, produce the
// deterministic fallback result instead.
func ParseAnalysis(response string) *models.AnalysisResult {
	cleaned := strings.TrimSpace(response)

	jsonContent := extractJSONFromMarkdown(cleaned)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return fallbackResult(response)
	}

	// Downstream severity coloring and alerting depend on well-formed
	// values, so out-of-range or unrecognized fields are a parse failure,
	// not something to silently accept.
	if result.HealthScore < 0 || result.HealthScore > 100 {
		return fallbackResult(response)
	}
	if result.Confidence < 0 || result.Confidence > 100 {
		return fallbackResult(response)
	}
	if !result.Status.Valid() {
		return fallbackResult(response)
	}
	if !result.PathogenType.Valid() {
		return fallbackResult(response)
	}

	return &result
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	// Look for JSON code blocks with ``` markers
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// fallbackResult builds the deterministic substitute result for an
// unparseable reply.
func fallbackResult(raw string) *models.AnalysisResult {
	return &models.AnalysisResult{
		HealthScore:          75,
		Status:               models.StatusModerate,
		DiseaseDetected:      FallbackDisease,
		PathogenType:         models.PathogenNone,
		Confidence:           50,
		MicroscopicAnalysis:  raw,
		VisibleSymptoms:      []string{fallbackSymptom},
		AffectedAreas:        []string{fallbackAffectedArea},
		Recommendations:      []string{fallbackRecommendation},
		PreventiveMeasures:   []string{fallbackPrevention},
		EcoFriendlyTreats:    []string{},
		EstimatedProgression: "Unknown",
		UrgentActionRequired: false,
	}
}
