// Package profile reads and writes shareable feature profiles and provides
// the built-in presets.
//
// A profile file looks like a baseline snapshot:
//
//	{"meta": {...}, "services": {"copilot": {"name": "...", "status": "disabled"}}}
//
// but it is a user artifact. Files are validated against an embedded JSON
// Schema on import, and a bad file is reported with ErrInvalidProfile.
package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// ErrInvalidProfile marks an imported file that is not a valid profile. It
// wraps errdefs.ErrMalformed.
var ErrInvalidProfile = fmt.Errorf("invalid profile: %w", errdefs.ErrMalformed)

//go:embed profile.schema.json
var schemaSource []byte

const schemaURL = "aiprune://profile.schema.json"

var compiled = mustCompile()

func mustCompile() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaSource)); err != nil {
		panic(fmt.Sprintf("profile schema: %v", err))
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("profile schema: %v", err))
	}
	return s
}

// Meta is the profile header.
type Meta struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"exported_services_count"`
}

// Entry is one feature in a profile.
type Entry struct {
	Name   string         `json:"name"`
	Status catalog.Status `json:"status"`
}

// Document is the on-disk profile.
type Document struct {
	Meta     Meta             `json:"meta"`
	Services map[string]Entry `json:"services"`
}

// Desired maps feature ids to the status the user wants, either
// catalog.StatusEnabled or catalog.StatusDisabled.
type Desired map[string]catalog.Status

// IDs returns the ids in d, sorted.
func (d Desired) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Export writes states to path as a profile.
func Export(path, version string, states []*catalog.State) error {
	doc := Document{
		Meta: Meta{
			App:       "aiprune",
			Version:   version,
			Timestamp: time.Now().Format(time.RFC3339),
			Count:     len(states),
		},
		Services: make(map[string]Entry, len(states)),
	}
	for _, st := range states {
		doc.Services[st.ID()] = Entry{Name: st.Name(), Status: st.Status}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Import reads and validates the profile at path. Only enabled and
// disabled entries become part of the result.
func Import(path string) (Desired, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("profile %s: %w", path, errdefs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes a profile document.
func Parse(data []byte) (Desired, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidProfile, err)
	}
	if err := compiled.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	desired := make(Desired, len(doc.Services))
	for id, e := range doc.Services {
		switch e.Status {
		case catalog.StatusEnabled, catalog.StatusDisabled:
			desired[id] = e.Status
		}
	}
	return desired, nil
}
