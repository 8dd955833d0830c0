package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// decodeModelJSON parses provider output into dest: strip markdown fences,
// try a direct parse, then make exactly one repair attempt. Anything still
// malformed after that is an upstream failure.
func decodeModelJSON(raw string, dest interface{}) error {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: response contains no JSON object", ErrUpstream)
	}

	if err := json.Unmarshal([]byte(cleaned), dest); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("%w: malformed JSON could not be repaired: %v", ErrUpstream, err)
	}
	if err := json.Unmarshal([]byte(repaired), dest); err != nil {
		return fmt.Errorf("%w: repaired JSON still invalid: %v", ErrUpstream, err)
	}
	return nil
}

// extractJSON pulls the JSON object out of a model response that may wrap it
// in markdown code fences or surrounding prose.
func extractJSON(response string) string {
	startMarkers := []string{"```json\n", "```json\r\n", "```\n", "```\r\n"}
	endMarker := "```"

	for _, startMarker := range startMarkers {
		startIdx := strings.Index(response, startMarker)
		if startIdx == -1 {
			continue
		}
		contentStart := startIdx + len(startMarker)
		remaining := response[contentStart:]
		endIdx := strings.Index(remaining, endMarker)
		if endIdx == -1 {
			continue
		}
		return strings.TrimSpace(remaining[:endIdx])
	}

	// Bare JSON object, possibly with prose around it.
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx != -1 && endIdx > startIdx {
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	return ""
}
