package recognize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Binding ties a numeric classifier label to an enrolled person.
type Binding struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

// LabelDirectory maps classifier label ids to enrolled people. A label
// the directory does not know resolves to nothing; that is a normal
// condition, not an error.
type LabelDirectory struct {
	bindings map[int64]Binding
}

// NewLabelDirectory creates an empty directory.
func NewLabelDirectory() *LabelDirectory {
	return &LabelDirectory{bindings: make(map[int64]Binding)}
}

// Bind assigns a label id to a person.
func (d *LabelDirectory) Bind(labelID int64, personID, name string) {
	d.bindings[labelID] = Binding{PersonID: personID, Name: name}
}

// Resolve looks up the person behind a label id.
func (d *LabelDirectory) Resolve(labelID int64) (Binding, bool) {
	b, ok := d.bindings[labelID]
	return b, ok
}

// Len returns the number of bound labels.
func (d *LabelDirectory) Len() int {
	return len(d.bindings)
}

// Save writes the directory as JSON.
func (d *LabelDirectory) Save(path string) error {
	data, err := json.MarshalIndent(d.bindings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal label directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write label directory: %w", err)
	}
	return nil
}

// LoadLabelDirectory reads a directory saved by Save. A missing file
// is reported as ErrModelMissing; the label map is part of the model.
func LoadLabelDirectory(path string) (*LabelDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModelMissing
		}
		return nil, fmt.Errorf("read label directory: %w", err)
	}

	var bindings map[int64]Binding
	if err := json.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("parse label directory: %w", err)
	}
	if bindings == nil {
		bindings = make(map[int64]Binding)
	}
	return &LabelDirectory{bindings: bindings}, nil
}
