package documents

import (
	"fmt"
	"time"
)

// SectionType is the kind of a document section.
type SectionType string

const (
	SectionHeading1  SectionType = "heading1"
	SectionHeading2  SectionType = "heading2"
	SectionParagraph SectionType = "paragraph"
)

// Section is one block of a review.
type Section struct {
	Type    SectionType `json:"type"`
	Content string      `json:"content"`
}

// Content is the structured body of a document.
type Content struct {
	Sections []Section `json:"sections"`
}

// Document is a literature review being written by a user.
type Document struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Title     string         `json:"title"`
	Config    map[string]any `json:"config"`
	Content   Content        `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateRequest is the body of POST /documents/.
type CreateRequest struct {
	Title   string         `json:"title"`
	Config  map[string]any `json:"config"`
	Content Content        `json:"content"`
}

func (r CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Title   *string         `json:"title,omitempty"`
	Config  *map[string]any `json:"config,omitempty"`
	Content *Content        `json:"content,omitempty"`
}

func (r UpdateRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

// GenerateRequest asks for new section text.
type GenerateRequest struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// GenerateResponse carries generated text and the requested section type.
type GenerateResponse struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// ExportRequest selects the export format.
type ExportRequest struct {
	Format Format `json:"format"`
}
