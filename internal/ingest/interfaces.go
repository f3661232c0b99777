package ingest

import (
	"context"

	"hotfolder/internal/catalog"
	"hotfolder/internal/metadata"
	"hotfolder/internal/workunit"
)

// CatalogResolver looks up the bibliographic description of a batch.
type CatalogResolver interface {
	Resolve(ctx context.Context, q catalog.Query) (*metadata.Document, error)
}

// WorkflowSystem is the subset of the unit store used during ingestion.
type WorkflowSystem interface {
	Template(ctx context.Context, id int64) (*workunit.Unit, error)
	Save(ctx context.Context, unit *workunit.Unit) error
	Delete(ctx context.Context, id int64) error
	SetProperty(ctx context.Context, unitID int64, name, value string) error
	Properties(ctx context.Context, unitID int64) ([]workunit.Property, error)
	Steps(ctx context.Context, unitID int64) ([]workunit.Step, error)
	AppendHistory(ctx context.Context, unitID int64, kind, detail string) error
	RecordStepHistory(ctx context.Context, unit *workunit.Unit) error
	WriteMetadata(ctx context.Context, unit *workunit.Unit, doc *metadata.Document) error
	ReadMetadata(ctx context.Context, unit *workunit.Unit) (*metadata.Document, error)
	ImagesTifDir(unit *workunit.Unit) string
	ImagesOrigDir(unit *workunit.Unit) string
}

// StepStarter launches a step asynchronously.
type StepStarter interface {
	Start(ctx context.Context, step workunit.Step) error
}

var (
	_ WorkflowSystem  = (*workunit.Store)(nil)
	_ StepStarter     = (*workunit.Runner)(nil)
	_ CatalogResolver = (*catalog.Client)(nil)
)
