package domain

import (
	"fmt"
	"time"
)

// ContentType identifies the kind of source record a fragment came from.
// It is used as a retrieval filter, never for access control.
type ContentType string

const (
	ContentTypeNote     ContentType = "note"
	ContentTypeMessage  ContentType = "message"
	ContentTypeTeamPost ContentType = "team_post"
	ContentTypeDocument ContentType = "document"
	ContentTypeLearning ContentType = "learning_content"
)

// ProcessingStatus represents the lifecycle state of a stored fragment.
type ProcessingStatus string

const (
	ProcessingStatusPending   ProcessingStatus = "pending"
	ProcessingStatusCompleted ProcessingStatus = "completed"
	ProcessingStatusFailed    ProcessingStatus = "failed"
)

// Scope is the tenant-partition key every fragment and every query is bound
// to. Exactly one of UserID or TeamID must be set.
type Scope struct {
	UserID string
	TeamID string
}

// IsTeam reports whether the scope targets shared team content.
func (s Scope) IsTeam() bool {
	return s.TeamID != ""
}

// Key returns the partition identifier, whichever side is set.
func (s Scope) Key() string {
	if s.TeamID != "" {
		return s.TeamID
	}
	return s.UserID
}

// String renders the scope for logs and span tags.
func (s Scope) String() string {
	if s.TeamID != "" {
		return "team:" + s.TeamID
	}
	return "user:" + s.UserID
}

// UserScope builds a personal-content scope.
func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

// TeamScope builds a shared-content scope.
func TeamScope(teamID string) Scope {
	return Scope{TeamID: teamID}
}

// SourceRef is a weak back-reference to the record a fragment was derived
// from. The fragment does not own the source record's lifecycle.
type SourceRef struct {
	Table    string
	RecordID string
}

func (r SourceRef) String() string {
	return r.Table + "/" + r.RecordID
}

// ContentFragment is one embedded chunk of source text, the atomic unit
// stored and retrieved. Fragments are immutable once completed; corrections
// go through delete-and-re-ingest.
type ContentFragment struct {
	ID          string
	Scope       Scope
	ContentType ContentType
	Source      SourceRef
	ChunkIndex  int
	TotalChunks int
	Text        string
	Embedding   []float32
	Metadata    map[string]any
	Status      ProcessingStatus
	CreatedAt   time.Time
}

// ValidateScope validates that exactly one partition key is set.
func ValidateScope(s Scope) error {
	if s.UserID == "" && s.TeamID == "" {
		return ErrInvalidScope
	}
	if s.UserID != "" && s.TeamID != "" {
		return ErrInvalidScope
	}
	return nil
}

// ValidateFragment validates a ContentFragment instance.
func ValidateFragment(f *ContentFragment) error {
	if f == nil {
		return fmt.Errorf("fragment cannot be nil")
	}

	if err := ValidateScope(f.Scope); err != nil {
		return err
	}

	if !isValidContentType(f.ContentType) {
		return ErrInvalidContentType
	}

	if f.Source.Table == "" || f.Source.RecordID == "" {
		return ErrMissingRequiredField
	}

	if f.ChunkIndex < 0 {
		return fmt.Errorf("fragment ChunkIndex cannot be negative")
	}

	if f.TotalChunks <= f.ChunkIndex {
		return fmt.Errorf("fragment TotalChunks must exceed ChunkIndex")
	}

	if f.Text == "" {
		return ErrMissingRequiredField
	}

	if !isValidProcessingStatus(f.Status) {
		return ErrInvalidProcessingStatus
	}

	if f.Status == ProcessingStatusCompleted && len(f.Embedding) == 0 {
		return fmt.Errorf("completed fragment must carry an embedding")
	}

	return nil
}

func isValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeNote, ContentTypeMessage, ContentTypeTeamPost,
		ContentTypeDocument, ContentTypeLearning:
		return true
	}
	return false
}

func isValidProcessingStatus(s ProcessingStatus) bool {
	switch s {
	case ProcessingStatusPending, ProcessingStatusCompleted, ProcessingStatusFailed:
		return true
	}
	return false
}

// ParseContentType validates and converts a raw content type string.
func ParseContentType(raw string) (ContentType, error) {
	t := ContentType(raw)
	if !isValidContentType(t) {
		return "", ErrInvalidContentType
	}
	return t, nil
}
