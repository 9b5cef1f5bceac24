package documents

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/rest"
)

const eventUUID = "6c2a9f31-8b44-4d0a-9c27-1e5f3a7b2d90"

type mockUploader struct {
	uploadFunc func(ctx context.Context, path string, fields map[string]string, files []rest.FilePart, out interface{}) error
	calls      int
}

func (m *mockUploader) UploadMultipart(ctx context.Context, path string, fields map[string]string, files []rest.FilePart, out interface{}) error {
	m.calls++
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, path, fields, files, out)
	}
	return nil
}

// TestUpload_SingleRequestForAllFiles tests that several files go out in one
// multipart request against the event path.
func TestUpload_SingleRequestForAllFiles(t *testing.T) {
	var gotPath string
	var gotFields map[string]string
	var gotFiles []rest.FilePart
	backend := &mockUploader{
		uploadFunc: func(ctx context.Context, path string, fields map[string]string, files []rest.FilePart, out interface{}) error {
			gotPath = path
			gotFields = fields
			gotFiles = files
			*(out.(*[]Document)) = []Document{
				{UUID: "d1", FileName: "scan.pdf", EventUUID: eventUUID},
				{UUID: "d2", FileName: "labs.pdf", EventUUID: eventUUID},
			}
			return nil
		},
	}
	client := NewClient(backend, zerolog.Nop())

	docs, err := client.Upload(context.Background(), eventUUID,
		File{Name: "scan.pdf", Content: strings.NewReader("%PDF-1")},
		File{Name: "labs.pdf", Content: strings.NewReader("%PDF-2")},
	)
	if err != nil {
		t.Fatalf("Failed to upload: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("Expected 1 request, got %d", backend.calls)
	}
	if gotPath != "/medical-history/"+eventUUID+"/documents" {
		t.Errorf("Unexpected path: '%s'", gotPath)
	}
	if gotFields["event_uuid"] != eventUUID {
		t.Errorf("Expected event_uuid field, got %v", gotFields)
	}
	if len(gotFiles) != 2 || gotFiles[0].FieldName != "files" {
		t.Errorf("Unexpected file parts: %+v", gotFiles)
	}
	if len(docs) != 2 {
		t.Errorf("Expected 2 stored documents, got %d", len(docs))
	}
}

// TestUpload_RejectsInvalidEventUUID tests local validation before any
// network traffic.
func TestUpload_RejectsInvalidEventUUID(t *testing.T) {
	backend := &mockUploader{}
	client := NewClient(backend, zerolog.Nop())

	_, err := client.Upload(context.Background(), "not-a-uuid",
		File{Name: "scan.pdf", Content: strings.NewReader("x")})
	if err == nil {
		t.Fatal("Expected error for invalid event uuid")
	}
	if backend.calls != 0 {
		t.Errorf("Expected no requests, got %d", backend.calls)
	}
}

// TestUpload_NoFiles tests the empty-set guard.
func TestUpload_NoFiles(t *testing.T) {
	client := NewClient(&mockUploader{}, zerolog.Nop())
	if _, err := client.Upload(context.Background(), eventUUID); err != ErrNoFiles {
		t.Fatalf("Expected ErrNoFiles, got: %v", err)
	}
}
