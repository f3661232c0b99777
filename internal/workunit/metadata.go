package workunit

import (
	"context"
	"errors"
	"fmt"

	"hotfolder/internal/metadata"
)

// WriteMetadata stores doc as the unit's bibliographic description.
func (s *Store) WriteMetadata(ctx context.Context, unit *Unit, doc *metadata.Document) error {
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	path := s.MetadataPath(unit)
	if path == "" {
		return errors.New("unit has no managed directory; save it first")
	}
	if err := metadata.Write(path, doc); err != nil {
		return fmt.Errorf("write metadata for unit %d: %w", unit.ID, err)
	}
	return nil
}

// ReadMetadata loads the unit's bibliographic description.
func (s *Store) ReadMetadata(ctx context.Context, unit *Unit) (*metadata.Document, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, err
	}
	path := s.MetadataPath(unit)
	if path == "" {
		return nil, errors.New("unit has no managed directory")
	}
	doc, err := metadata.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata for unit %d: %w", unit.ID, err)
	}
	return doc, nil
}
