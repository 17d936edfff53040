package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned by project sources that do not know an id.
var ErrNotFound = errors.New("project not found")

// LoadFile reads project data from a JSON file.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project data %s: %w", path, err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse project data %s: %w", path, err)
	}
	return &d, nil
}

// FileSource serves the project stored in one JSON file. The file is read
// on every call so edits show up without a restart.
type FileSource struct {
	Path string
}

// LoadProject returns the file's project when its id matches. A file
// without a project id answers for any id.
func (f FileSource) LoadProject(_ context.Context, id string) (*Data, error) {
	d, err := LoadFile(f.Path)
	if err != nil {
		return nil, err
	}
	switch d.Project.ID {
	case id:
	case "":
		d.Project.ID = id
	default:
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// SampleSource answers every id with the sample project.
type SampleSource struct{}

func (SampleSource) LoadProject(_ context.Context, id string) (*Data, error) {
	return Sample(id), nil
}
