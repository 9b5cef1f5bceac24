// Package documents attaches uploaded files to medical-history events.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/rest"
)

var ErrNoFiles = errors.New("no files to upload")

// Uploader is the slice of the REST client the package needs.
type Uploader interface {
	UploadMultipart(ctx context.Context, path string, fields map[string]string, files []rest.FilePart, out interface{}) error
}

// Document is a stored attachment as the backend reports it.
type Document struct {
	UUID      string `json:"uuid"`
	FileName  string `json:"file_name"`
	EventUUID string `json:"event_uuid"`
}

// Client uploads documents against the profile backend.
type Client struct {
	backend Uploader
	logger  zerolog.Logger
}

func NewClient(backend Uploader, logger zerolog.Logger) *Client {
	return &Client{backend: backend, logger: logger}
}

// File is one attachment to upload.
type File struct {
	Name    string
	Content io.Reader
}

// FromPath opens a file on disk for upload. The caller owns the returned
// closer.
func FromPath(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open document: %w", err)
	}
	return File{Name: filepath.Base(path), Content: f}, f, nil
}

// Upload ties one or more files to the event identified by eventUUID in a
// single multipart request.
func (c *Client) Upload(ctx context.Context, eventUUID string, files ...File) ([]Document, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if err := uuid.Validate(eventUUID); err != nil {
		return nil, fmt.Errorf("invalid event uuid: %w", err)
	}

	parts := make([]rest.FilePart, 0, len(files))
	for _, f := range files {
		parts = append(parts, rest.FilePart{
			FieldName: "files",
			FileName:  f.Name,
			Content:   f.Content,
		})
	}

	var uploaded []Document
	err := c.backend.UploadMultipart(ctx,
		"/medical-history/"+eventUUID+"/documents",
		map[string]string{"event_uuid": eventUUID},
		parts,
		&uploaded,
	)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("event_uuid", eventUUID).
		Int("count", len(uploaded)).
		Msg("Documents uploaded")
	return uploaded, nil
}
