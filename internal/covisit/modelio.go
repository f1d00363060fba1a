// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package covisit

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

// SaveModel writes the model document to path atomically. The document
// is compact, matching what the online loader consumes.
func SaveModel(m *types.CoVisitationModel, path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := jsonl.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("writing model: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model document.
func LoadModel(path string) (*types.CoVisitationModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	var m types.CoVisitationModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	if err := Validate(&m); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}
