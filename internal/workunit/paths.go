package workunit

import (
	"path/filepath"
	"strconv"
	"strings"

	"hotfolder/internal/textutil"
)

const (
	imagesDirName    = "images"
	metadataFileName = "meta.json"
)

// UnitDir returns the managed directory of unit id.
func (s *Store) UnitDir(id int64) string {
	if s == nil || strings.TrimSpace(s.unitsDir) == "" || id <= 0 {
		return ""
	}
	return filepath.Join(s.unitsDir, strconv.FormatInt(id, 10))
}

// ImagesDir returns the directory holding all image folders of the unit.
func (s *Store) ImagesDir(unit *Unit) string {
	dir := s.UnitDir(unitID(unit))
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, imagesDirName)
}

// ImagesTifDir returns the working image folder, images/<title>_tif.
func (s *Store) ImagesTifDir(unit *Unit) string {
	images := s.ImagesDir(unit)
	if images == "" {
		return ""
	}
	return filepath.Join(images, titleSegment(unit)+"_tif")
}

// ImagesOrigDir returns the master image folder ingested batches are copied
// into, images/orig_<title>_tif.
func (s *Store) ImagesOrigDir(unit *Unit) string {
	images := s.ImagesDir(unit)
	if images == "" {
		return ""
	}
	return filepath.Join(images, "orig_"+titleSegment(unit)+"_tif")
}

// MetadataPath returns the location of the unit's bibliographic description.
func (s *Store) MetadataPath(unit *Unit) string {
	dir := s.UnitDir(unitID(unit))
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, metadataFileName)
}

func unitID(unit *Unit) int64 {
	if unit == nil {
		return 0
	}
	return unit.ID
}

func titleSegment(unit *Unit) string {
	if unit == nil {
		return "unit"
	}
	segment := textutil.SanitizeFileName(unit.Title)
	if segment == "" {
		return "unit-" + strconv.FormatInt(unit.ID, 10)
	}
	return segment
}
