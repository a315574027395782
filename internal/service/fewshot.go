package service

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/impacttracker/esgrag/internal/llm"
)

// LoadFewShot reads the externally-authored few-shot exemplar turns from a
// JSON file: an ordered array of {role, content} objects. The file is loaded
// once at startup; a missing or malformed file is a fatal configuration
// error, not a per-query failure.
func LoadFewShot(path string) ([]llm.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading few-shot file: %w", err)
	}

	var examples []llm.Message
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parsing few-shot file %s: %w", path, err)
	}

	for i, msg := range examples {
		if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
			return nil, fmt.Errorf("few-shot turn %d has invalid role %q", i, msg.Role)
		}
	}

	return examples, nil
}
