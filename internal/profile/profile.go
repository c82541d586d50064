// Package profile holds the business details the voice agent reads out to
// callers: name, hours, address and the like.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Item is one business profile field.
type Item struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keys asked for by the init wizard, in display order.
var Keys = []string{"name", "address", "phone", "hours", "services", "website", "booking"}

// Sample returns the demo salon profile used by `frontdesk seed --sample`.
func Sample() []Item {
	return []Item{
		{Key: "name", Value: "Elegant Beauty Salon"},
		{Key: "address", Value: "123 Style Street, Fashion City, FC 12345"},
		{Key: "phone", Value: "555-123-4567"},
		{Key: "hours", Value: "Monday-Friday: 9:00 AM - 7:00 PM, Saturday: 10:00 AM - 5:00 PM, Sunday: Closed"},
		{Key: "services", Value: "Haircuts, Coloring, Styling, Manicures, Pedicures, Facials"},
		{Key: "website", Value: "www.elegantbeauty.com"},
		{Key: "booking", Value: "Call 555-123-4567 or book online at www.elegantbeauty.com/book"},
	}
}

// LoadFile reads a YAML mapping of profile keys to values. Keys keep the
// order they have in the file. Returns nil and no error if the file does not
// exist.
func LoadFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML mapping of profile keys to scalar values.
func Parse(data []byte) ([]Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profile file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("parsing profile file: top level must be a mapping")
	}

	items := make([]Item, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parsing profile file: %q (line %d) must be a plain value", k.Value, k.Line)
		}
		key := strings.TrimSpace(k.Value)
		if key == "" {
			return nil, fmt.Errorf("parsing profile file: empty key on line %d", k.Line)
		}
		items = append(items, Item{Key: key, Value: strings.TrimSpace(v.Value)})
	}
	return items, nil
}

// SaveFile writes items as a YAML mapping, creating parent directories as
// needed.
func SaveFile(path string, items []Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, it := range items {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: it.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: it.Value},
		)
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile file: %w", err)
	}
	return nil
}

// Text formats items as "key: value" lines for the agent's instructions.
func Text(items []Item) string {
	var b strings.Builder
	for _, it := range items {
		if it.Value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", it.Key, it.Value)
	}
	return b.String()
}
