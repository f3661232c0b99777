package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known metadata types read or written by ingestion.
const (
	TypeConferenceIndicator = "ConferenceIndicator"
	TypeImagePath           = "pathimagefiles"
	TypeTitle               = "TitleDocMain"
	TypeCatalogID           = "CatalogIDDigital"
)

// Metadata is one typed value.
type Metadata struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// DocStruct is a structure element such as a monograph (logical) or the
// bound book (physical).
type DocStruct struct {
	Type     string     `json:"type,omitempty"`
	Metadata []Metadata `json:"metadata,omitempty"`
}

// MetadataByType returns all values of the given type in document order.
func (d *DocStruct) MetadataByType(typ string) []Metadata {
	if d == nil {
		return nil
	}
	var out []Metadata
	for _, md := range d.Metadata {
		if md.Type == typ {
			out = append(out, md)
		}
	}
	return out
}

// Values is MetadataByType reduced to the values.
func (d *DocStruct) Values(typ string) []string {
	found := d.MetadataByType(typ)
	values := make([]string, 0, len(found))
	for _, md := range found {
		values = append(values, md.Value)
	}
	return values
}

// First returns the first value of typ, or "".
func (d *DocStruct) First(typ string) string {
	if values := d.Values(typ); len(values) > 0 {
		return values[0]
	}
	return ""
}

// RemoveMetadataByType drops every value of typ and reports how many were removed.
func (d *DocStruct) RemoveMetadataByType(typ string) int {
	if d == nil {
		return 0
	}
	kept := d.Metadata[:0]
	removed := 0
	for _, md := range d.Metadata {
		if md.Type == typ {
			removed++
			continue
		}
		kept = append(kept, md)
	}
	d.Metadata = kept
	return removed
}

// AddMetadata appends a value.
func (d *DocStruct) AddMetadata(typ, value string) {
	d.Metadata = append(d.Metadata, Metadata{Type: typ, Value: value})
}

// Document is a complete bibliographic description.
type Document struct {
	Logical  DocStruct `json:"logical"`
	Physical DocStruct `json:"physical"`
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Logical:  DocStruct{Type: d.Logical.Type},
		Physical: DocStruct{Type: d.Physical.Type},
	}
	out.Logical.Metadata = append([]Metadata(nil), d.Logical.Metadata...)
	out.Physical.Metadata = append([]Metadata(nil), d.Physical.Metadata...)
	return out
}

// Validate reports structural problems that make a document unusable.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("metadata document is nil")
	}
	if strings.TrimSpace(d.Logical.Type) == "" {
		return errors.New("logical docstruct has no type")
	}
	for _, ds := range []DocStruct{d.Logical, d.Physical} {
		for i, md := range ds.Metadata {
			if strings.TrimSpace(md.Type) == "" {
				return fmt.Errorf("metadata %d of %s has no type", i, ds.Type)
			}
		}
	}
	return nil
}

// Marshal encodes the document as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("metadata document is nil")
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal decodes a JSON document.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &doc, nil
}

// Read loads a document from path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Write stores doc at path through a temp file and rename so readers never
// observe a partially written document.
func Write(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".meta-*.json")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}
