package models

// severityColors maps a health status to the hex color the dashboard renders
// it with.
var severityColors = map[HealthStatus]string{
	StatusHealthy:  "#22c55e",
	StatusMild:     "#eab308",
	StatusModerate: "#f97316",
	StatusSevere:   "#ef4444",
	StatusCritical: "#dc2626",
}

// pathogenIcons maps a pathogen type to its dashboard icon name.
var pathogenIcons = map[PathogenType]string{
	PathogenFungal:        "mushroom",
	PathogenBacterial:     "bacteria",
	PathogenViral:         "virus",
	PathogenPest:          "bug",
	PathogenEnvironmental: "cloud-sun",
	PathogenNone:          "leaf",
}

// SeverityColor returns the display color for a health status. Unknown
// statuses fall back to the moderate color.
func SeverityColor(s HealthStatus) string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[StatusModerate]
}

// PathogenIcon returns the display icon name for a pathogen type. Unknown
// types fall back to the leaf icon.
func PathogenIcon(p PathogenType) string {
	if icon, ok := pathogenIcons[p]; ok {
		return icon
	}
	return pathogenIcons[PathogenNone]
}
