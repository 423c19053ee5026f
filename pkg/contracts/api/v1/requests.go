// Package api contains the HTTP API contract definitions.
// Version v1 represents the current stable API version.
package api

// IngestRequest carries the form fields of POST /api/ingest. The markup
// itself arrives either as the "file" multipart part or the Markup field.
type IngestRequest struct {
	// Markup is inline page markup; ignored when a file part is present.
	Markup string `json:"markup" form:"markup" validate:"required_without=HasFile"`
	// Date keys the snapshot; empty means today.
	Date string `json:"date,omitempty" form:"date" validate:"omitempty,datetime=2006-01-02"`

	HasFile bool `json:"-"`
}

// ArtifactRequest names a file to download.
type ArtifactRequest struct {
	Kind string `json:"kind" param:"kind" validate:"required,oneof=snapshot workbook"`
	Name string `json:"name" param:"name" validate:"required,filename"`
}
