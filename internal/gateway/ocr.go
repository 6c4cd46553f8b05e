package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"ragdesk/internal/notify"
)

// DefaultOCREndpoint is the hosted text-recognition service image uploads
// go through. Unlike the action endpoints it is not served by the inference
// server itself.
const DefaultOCREndpoint = "https://ocr.klave.network/v1/extract"

// OCRClient extracts text from scanned documents via the external OCR host.
type OCRClient struct {
	endpoint string
	httpc    *http.Client
	notifier notify.Notifier
}

func NewOCRClient(endpoint string, notifier notify.Notifier) *OCRClient {
	if endpoint == "" {
		endpoint = DefaultOCREndpoint
	}
	return &OCRClient{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 5 * time.Minute},
		notifier: notifier,
	}
}

// Extract uploads the file content as multipart form data (field "file")
// and returns the recognized text.
func (c *OCRClient) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	h := c.notifier.Begin(fmt.Sprintf("Sending %q for text recognition...", filepath.Base(filename)))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}
	if err := writer.Close(); err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var backend errorBody
		if jsonErr := json.Unmarshal(data, &backend); jsonErr == nil && backend.Message != "" {
			err = errors.New(backend.Message)
		} else {
			err = errors.New(http.StatusText(resp.StatusCode))
		}
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", err
	}

	var out ocrResponse
	if err := json.Unmarshal(data, &out); err != nil {
		h.Error(fmt.Sprintf("OCR request failed: %v", err))
		return "", fmt.Errorf("decode response: %w", err)
	}
	h.Success(fmt.Sprintf("Recognized %d characters", len(out.Text)))
	return out.Text, nil
}
