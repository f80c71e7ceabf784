package portal

import (
	"fmt"
	"strings"
)

// Subject is a top-level course area. Subjects only ever come from the seed catalog.
type Subject struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Icon        string `json:"icon" toml:"icon"`
	Color       string `json:"color" toml:"color"`
	Description string `json:"description" toml:"description"`
}

// Folder is a chapter grouping within a subject.
// SubjectID references a Subject by convention only.
type Folder struct {
	ID        string `json:"id" toml:"id"`
	SubjectID string `json:"subjectId" toml:"subject_id"`
	Name      string `json:"name" toml:"name"`
	CreatedAt string `json:"createdAt" toml:"created_at"` // display string, e.g. "1/15/2024"
}

// MaterialType is the closed set of material kinds.
type MaterialType string

const (
	MaterialPDF   MaterialType = "pdf"
	MaterialVideo MaterialType = "video"
	MaterialDoc   MaterialType = "doc"
	MaterialImage MaterialType = "image"
	MaterialLink  MaterialType = "link"
)

// MaterialTypes lists every valid MaterialType.
var MaterialTypes = []MaterialType{MaterialPDF, MaterialVideo, MaterialDoc, MaterialImage, MaterialLink}

// Valid reports whether t is one of the closed set.
func (t MaterialType) Valid() bool {
	switch t {
	case MaterialPDF, MaterialVideo, MaterialDoc, MaterialImage, MaterialLink:
		return true
	}
	return false
}

// ParseMaterialType parses a material type name (case-insensitive).
func ParseMaterialType(s string) (MaterialType, error) {
	t := MaterialType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown material type: %q", s)
	}
	return t, nil
}

// MaterialTypeForMIME picks the material type for an uploaded file.
// image/*, video/* and application/pdf are recognised; anything else keeps fallback.
func MaterialTypeForMIME(mime string, fallback MaterialType) MaterialType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MaterialImage
	case strings.HasPrefix(mime, "video/"):
		return MaterialVideo
	case mime == "application/pdf":
		return MaterialPDF
	}
	if !fallback.Valid() {
		return MaterialDoc
	}
	return fallback
}

// SourceKind tags where a material's URL points.
type SourceKind string

const (
	// SourceNone means the material has no previewable source.
	SourceNone SourceKind = ""
	// SourceLink is a durable external address.
	SourceLink SourceKind = "link"
	// SourceSession is a reference to an uploaded blob that only lives for one session.
	SourceSession SourceKind = "session"
)

// Material is one study resource.
type Material struct {
	ID        string       `json:"id" toml:"id"`
	SubjectID string       `json:"subjectId" toml:"subject_id"`
	FolderID  string       `json:"folderId,omitempty" toml:"folder_id,omitempty"` // empty = uncategorized
	Title     string       `json:"title" toml:"title"`
	Type      MaterialType `json:"type" toml:"type"`
	Date      string       `json:"date" toml:"date"`
	URL       string       `json:"url,omitempty" toml:"url,omitempty"`
	Source    SourceKind   `json:"source,omitempty" toml:"source,omitempty"`
}

// Uncategorized reports whether the material sits directly under its subject.
func (m Material) Uncategorized() bool {
	return m.FolderID == ""
}

// NewMaterial is the input to Repository.CreateMaterial.
type NewMaterial struct {
	SubjectID string
	FolderID  string
	Title     string
	Type      MaterialType
	Source    SourceKind
	URL       string
	// FileName is the original upload name; used as the title fallback for session sources.
	FileName string
}

// Provenance tells whether a record ships with the seed catalog or was added locally.
type Provenance string

const (
	ProvenanceSeed  Provenance = "seed"
	ProvenanceLocal Provenance = "local"
)

// Placeholders used when the caller leaves a field blank.
const (
	DefaultFolderName = "New Chapter"
	DefaultTitle      = "Untitled"
	DefaultSubjectID  = "general"
)
