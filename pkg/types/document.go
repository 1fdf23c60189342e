package types

import (
	"time"

	"github.com/google/uuid"
)

// documentNamespace scopes deterministic document IDs to this application.
var documentNamespace = uuid.MustParse("8f3a1c52-6b6f-4de1-9d4e-2b1f1a2f9c77")

// DocumentID derives the stable identifier for a path. Re-indexing the same
// path always yields the same ID.
func DocumentID(path string) string {
	return uuid.NewSHA1(documentNamespace, []byte(path)).String()
}

// Document represents one live indexed file. At most one live document exists
// per path.
type Document struct {
	// Identification
	ID   string
	Path string

	// Last-seen file identity
	ContentHash [32]byte
	SizeBytes   int64
	ModTime     time.Time

	// Extracted metadata
	Category  string
	Preview   string // Bounded prefix of the extracted text
	WordCount int

	IndexedAt time.Time
}

// Fingerprint is the lightweight file-identity snapshot used to decide
// whether re-extraction is needed. It is written only by the indexer after a
// successful re-index and is never read on the query path.
type Fingerprint struct {
	Path        string
	SizeBytes   int64
	ModTime     time.Time
	ContentHash [32]byte
}

// FileStat is one entry from the filesystem scanner's current listing.
type FileStat struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// ChangeKind classifies a path against its stored fingerprint.
type ChangeKind string

const (
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeAdded     ChangeKind = "added"
	ChangeModified  ChangeKind = "modified"
	ChangeRemoved   ChangeKind = "removed"
)

// Chunk is a bounded span of a document's extracted text.
type Chunk struct {
	ID         int64
	DocumentID string
	Seq        int // Position within the document, 0-based
	Offset     int // Rune offset of the chunk start in the extracted text
	Content    string
}

// Validate checks chunk integrity.
func (c *Chunk) Validate() error {
	if c.DocumentID == "" {
		return ErrMissingDocumentID
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.Seq < 0 || c.Offset < 0 {
		return ErrInvalidChunkSpan
	}
	return nil
}
