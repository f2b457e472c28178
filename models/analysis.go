package models

import (
	"fmt"
	"strings"
	"time"
)

// HealthStatus is the overall plant condition reported by the analyzer.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusMild     HealthStatus = "mild"
	StatusModerate HealthStatus = "moderate"
	StatusSevere   HealthStatus = "severe"
	StatusCritical HealthStatus = "critical"
)

// Valid reports whether the status is one of the enumerated values.
func (s HealthStatus) Valid() bool {
	switch s {
	case StatusHealthy, StatusMild, StatusModerate, StatusSevere, StatusCritical:
		return true
	}
	return false
}

// PathogenType classifies the detected pathogen, if any.
type PathogenType string

const (
	PathogenFungal        PathogenType = "fungal"
	PathogenBacterial     PathogenType = "bacterial"
	PathogenViral         PathogenType = "viral"
	PathogenPest          PathogenType = "pest"
	PathogenEnvironmental PathogenType = "environmental"
	PathogenNone          PathogenType = "none"
)

// Valid reports whether the pathogen type is one of the enumerated values.
func (p PathogenType) Valid() bool {
	switch p {
	case PathogenFungal, PathogenBacterial, PathogenViral, PathogenPest, PathogenEnvironmental, PathogenNone:
		return true
	}
	return false
}

// AnalysisResult is the structured outcome of one inference call.
// Field names match the JSON schema the model is instructed to emit.
type AnalysisResult struct {
	HealthScore          int          `json:"health_score"`
	Status               HealthStatus `json:"status"`
	DiseaseDetected      string       `json:"disease_detected,omitempty"`
	PathogenType         PathogenType `json:"pathogen_type"`
	Confidence           int          `json:"confidence"`
	MicroscopicAnalysis  string       `json:"microscopic_analysis"`
	VisibleSymptoms      []string     `json:"visible_symptoms"`
	AffectedAreas        []string     `json:"affected_areas"`
	Recommendations      []string     `json:"recommendations"`
	PreventiveMeasures   []string     `json:"preventive_measures"`
	EcoFriendlyTreats    []string     `json:"eco_friendly_treatments"`
	EstimatedProgression string       `json:"estimated_progression"`
	UrgentActionRequired bool         `json:"urgent_action_required"`
}

// AnalysisRecord is the persisted, immutable outcome of one completed
// submission. Records are scoped to their owning principal and never mutated.
type AnalysisRecord struct {
	ID          string         `json:"id"`
	PrincipalID string         `json:"principal_id"`
	ImageURL    string         `json:"image_url"`
	Result      AnalysisResult `json:"analysis_result"`
	Severity    HealthStatus   `json:"severity"`
	CreatedAt   time.Time      `json:"created_at"`
}

// FormatSummary renders a human-readable summary of the record's analysis.
func (r *AnalysisRecord) FormatSummary() string {
	a := r.Result

	var b strings.Builder
	b.WriteString("Plant Health Analysis\n\n")
	fmt.Fprintf(&b, "Health Score: %d/100\n", a.HealthScore)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(a.Status)))
	disease := a.DiseaseDetected
	if disease == "" {
		disease = "None"
	}
	fmt.Fprintf(&b, "Disease Detected: %s\n", disease)
	fmt.Fprintf(&b, "Pathogen Type: %s\n", a.PathogenType)
	fmt.Fprintf(&b, "Confidence Level: %d%%\n\n", a.Confidence)

	fmt.Fprintf(&b, "Microscopic Analysis:\n%s\n", a.MicroscopicAnalysis)
	writeSection(&b, "Visible Symptoms", a.VisibleSymptoms, "None detected")
	writeSection(&b, "Affected Areas", a.AffectedAreas, "None")
	writeSection(&b, "Recommendations", a.Recommendations, "No recommendations")
	writeSection(&b, "Eco-Friendly Treatments", a.EcoFriendlyTreats, "None needed")
	writeSection(&b, "Preventive Measures", a.PreventiveMeasures, "None")
	fmt.Fprintf(&b, "\nEstimated Progression: %s\n", a.EstimatedProgression)
	if a.UrgentActionRequired {
		b.WriteString("\nURGENT ACTION REQUIRED\n")
	}

	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string, empty string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintf(b, "  %s\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}
