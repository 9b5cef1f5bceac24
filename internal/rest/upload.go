package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FilePart is one file in a multipart upload.
type FilePart struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// UploadMultipart posts files plus plain form fields to path and decodes the
// JSON response into out. Used by the document-upload endpoint, which ties
// several files to a parent event in a single request.
func (c *Client) UploadMultipart(ctx context.Context, path string, fields map[string]string, files []FilePart, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return fmt.Errorf("failed to create form file %s: %w", file.FileName, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("failed to copy file %s: %w", file.FileName, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.do(ctx, req, http.MethodPost, path)
	if err != nil {
		return err
	}
	if out != nil && len(res.body) > 0 {
		if err := unmarshalBody(res.body, out); err != nil {
			return err
		}
	}
	return nil
}
