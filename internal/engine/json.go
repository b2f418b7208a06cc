// Package engine implements the three-stage CX analysis pipeline: sentiment
// impact, driver analysis, and business impact, sequenced by the Engine
// orchestrator. Every stage upholds the same contract: analyze model output
// under a strict JSON-only discipline, and substitute a complete predefined
// fallback record whenever the provider call or its validation fails.
package engine

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// requireKeys checks that every named key is present in the JSON object in
// data before it is unmarshaled into a typed struct, where absent fields would
// silently take their zero values. Keys in nested objects are written as
// "parent.child". A key set to JSON null counts as present.
func requireKeys(data []byte, keys ...string) error {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return eris.Wrap(err, "decode response object")
	}

	nested := make(map[string]map[string]json.RawMessage)
	for _, key := range keys {
		parent, child, isNested := strings.Cut(key, ".")
		if !isNested {
			if _, ok := root[key]; !ok {
				return eris.Errorf("response missing required key %q", key)
			}
			continue
		}

		obj, ok := nested[parent]
		if !ok {
			raw, present := root[parent]
			if !present {
				return eris.Errorf("response missing required key %q", parent)
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				return eris.Wrapf(err, "decode response key %q", parent)
			}
			nested[parent] = obj
		}
		if _, present := obj[child]; !present {
			return eris.Errorf("response missing required key %q", key)
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampCSAT(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
