package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"

	"ragdesk/internal/config"
	"ragdesk/internal/gateway"
)

// MaxDocumentSize caps what upload will read, 50MB.
const MaxDocumentSize = 50 * 1024 * 1024

// DocumentService turns local files into chunking requests: extract text,
// attach document metadata and the resolved connection profile, submit.
type DocumentService interface {
	Upload(ctx context.Context, cfg config.Config, path string) (gateway.ChunkResult, error)
}

type documentService struct {
	gw  *gateway.Client
	ocr *gateway.OCRClient
}

func NewDocumentService(gw *gateway.Client, ocr *gateway.OCRClient) DocumentService {
	return &documentService{gw: gw, ocr: ocr}
}

func (s *documentService) Upload(ctx context.Context, cfg config.Config, path string) (gateway.ChunkResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	if info.Size() > MaxDocumentSize {
		return nil, fmt.Errorf("file exceeds size limit of 50MB")
	}

	text, err := s.extract(ctx, path)
	if err != nil {
		return nil, err
	}

	conn := config.SelectedRagConnection(cfg)
	doc := gateway.DocumentMeta{
		Date:        time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		ContentType: contentTypeFor(path),
		URL:         filepath.Base(path),
		Length:      len(text),
	}
	return s.gw.ChunkDocument(ctx, text, cfg.SelectedRagConnectionName, conn, doc)
}

func (s *documentService) extract(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".json":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(content), nil
	case ".pdf":
		return extractPDF(path)
	case ".png", ".jpg", ".jpeg", ".tiff":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return s.ocr.Extract(ctx, path, content)
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
