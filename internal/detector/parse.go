package detector

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled extraction patterns. Compiling on every parse is much
// slower than reusing package-level regexes.
var (
	// Matches ```json ... ``` or ``` ... ``` fenced blocks containing
	// a JSON object.
	fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	// Matches the first flat brace-delimited object anywhere in text.
	braceObjectRegex = regexp.MustCompile(`(?s)\{[^{}]*\}`)
)

// detectionResponse is the strict shape requested from the model.
// Field names match the keys the prompt demands. Missing fields fall
// back to their zero values, with the summary defaulted explicitly
// after a successful parse.
type detectionResponse struct {
	SignificanceScore float64 `json:"SIGNIFICANCE_SCORE"`
	IsSignificant     bool    `json:"IS_SIGNIFICANT"`
	ChangeSummary     string  `json:"CHANGE_SUMMARY"`
}

// extractStrategy returns a candidate JSON string pulled out of a raw
// model reply, or ok=false when the strategy does not apply.
type extractStrategy func(text string) (candidate string, ok bool)

// extractWhole treats the entire reply as the JSON candidate.
func extractWhole(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// extractFencedBlock pulls JSON out of a markdown code fence.
func extractFencedBlock(text string) (string, bool) {
	match := fencedBlockRegex.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// extractFirstObject finds the first brace-delimited object anywhere
// in the reply.
func extractFirstObject(text string) (string, bool) {
	match := braceObjectRegex.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// parseStrategies is the ordered cascade applied to model replies:
// direct parse first, then fenced-block extraction, then a bare
// object search. The first strategy whose candidate unmarshals wins.
var parseStrategies = []extractStrategy{
	extractWhole,
	extractFencedBlock,
	extractFirstObject,
}

// parseDetectionResponse runs the cascade over a raw model reply.
// It returns ok=false only when every strategy fails; a successfully
// parsed but incomplete object comes back with its missing fields
// defaulted (0.0 / false / "No summary available.").
func parseDetectionResponse(text string) (detectionResponse, bool) {
	for _, strategy := range parseStrategies {
		candidate, ok := strategy(text)
		if !ok {
			continue
		}
		var resp detectionResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
			slog.Debug("detection response parse strategy failed",
				"error", err,
				"candidatePreview", truncate(candidate, 100))
			continue
		}
		if resp.ChangeSummary == "" {
			resp.ChangeSummary = "No summary available."
		}
		return resp, true
	}
	return detectionResponse{}, false
}

// truncate shortens a string to maxLen bytes for log previews.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
