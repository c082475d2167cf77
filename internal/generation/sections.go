package generation

import "strings"

const (
	markerDockerfile = "===DOCKERFILE==="
	markerLint       = "===LINT==="
	markerTest       = "===TEST==="
	markerEnd        = "===END==="
)

// artifactText holds the three raw section bodies before script hygiene and
// containerfile validation are applied.
type artifactText struct {
	containerfile string
	lint          string
	test          string
}

// parseSections splits text on the three labeled markers. It returns the
// sections it found, the names of any it didn't, and whether all three were
// present.
func parseSections(text string) (artifactText, []string, bool) {
	var artifacts artifactText
	var missing []string

	if body, ok := extractSection(text, markerDockerfile, []string{markerLint, markerTest, markerEnd}); ok {
		artifacts.containerfile = body
	} else {
		missing = append(missing, "dockerfile")
	}

	if body, ok := extractSection(text, markerLint, []string{markerDockerfile, markerTest, markerEnd}); ok {
		artifacts.lint = body
	} else {
		missing = append(missing, "lint")
	}

	if body, ok := extractSection(text, markerTest, []string{markerDockerfile, markerLint, markerEnd}); ok {
		artifacts.test = body
	} else {
		missing = append(missing, "test")
	}

	return artifacts, missing, len(missing) == 0
}

// mergeSections parses a retry response that is expected to contain only
// the previously-missing sections, and fills in whichever of those it
// finds on top of existing. It returns the merged result, the names still
// missing after the merge, and whether the merge is now complete.
func mergeSections(existing artifactText, retryText string) (artifactText, []string, bool) {
	patch, _, _ := parseSections(retryText)

	merged := existing
	if merged.containerfile == "" && patch.containerfile != "" {
		merged.containerfile = patch.containerfile
	}
	if merged.lint == "" && patch.lint != "" {
		merged.lint = patch.lint
	}
	if merged.test == "" && patch.test != "" {
		merged.test = patch.test
	}

	var stillMissing []string
	if merged.containerfile == "" {
		stillMissing = append(stillMissing, "dockerfile")
	}
	if merged.lint == "" {
		stillMissing = append(stillMissing, "lint")
	}
	if merged.test == "" {
		stillMissing = append(stillMissing, "test")
	}

	return merged, stillMissing, len(stillMissing) == 0
}

// extractSection finds marker in text and returns the trimmed body up to
// whichever of the other markers appears first after it (or end of text).
func extractSection(text, marker string, stopMarkers []string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(marker):]

	end := len(rest)
	for _, stop := range stopMarkers {
		if idx := strings.Index(rest, stop); idx >= 0 && idx < end {
			end = idx
		}
	}

	body := strings.Trim(rest[:end], "\n")
	return body, true
}
