package domain

import "strings"

// IconDiagnostic describes a hero icon path that could not be fully parsed.
// Logging is up to the caller.
type IconDiagnostic struct {
	Path   string
	Reason string
}

// ParseHeroIcon normalizes a score-screen hero icon path into the bare hero
// name. Paths outside the score-screen glue folder pass through unchanged.
func ParseHeroIcon(raw string) (string, *IconDiagnostic) {
	path := strings.ReplaceAll(raw, `\`, "/")
	if !strings.Contains(path, "UI/Glues/ScoreScreen/") {
		return path, nil
	}

	trimmed := strings.ReplaceAll(path, ".blp", "")
	trimmed = strings.ReplaceAll(trimmed, ".png", "")
	parts := strings.Split(trimmed, "-")
	if len(parts) < 3 {
		return path, &IconDiagnostic{Path: path, Reason: "icon path has too few segments"}
	}
	return parts[2], nil
}
