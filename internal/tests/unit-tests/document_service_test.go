package unit_tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragdesk/internal/config"
	"ragdesk/internal/gateway"
	"ragdesk/internal/services"
	"ragdesk/internal/tests/mocks"
)

func TestDocumentService_Upload_TextFile(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chunking", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"chunks": 1})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)
	service := services.NewDocumentService(client, gateway.NewOCRClient("", notifier))

	path := filepath.Join(t.TempDir(), "notes.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	cfg := config.Default()
	cfg.SelectedRagConnectionName = "Dev"
	cfg.RagConnections = []config.RagConnection{{
		ConnectionName: "Dev",
		Host:           "db.local",
		Port:           5432,
		Name:           "app",
		User:           "admin",
		ID:             "id-1",
	}}

	result, err := service.Upload(context.Background(), cfg, path)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"chunks":1}`, string(result))

	assert.Equal(t, "hello world", body["input"])
	conn := body["rag_connection"].(map[string]any)
	assert.Equal(t, "Dev", conn["searched_name"])
	assert.Equal(t, "db.local", conn["host"])
	params := body["rag_insertion_params"].(map[string]any)
	document := params["document"].(map[string]any)
	assert.Equal(t, "text/plain", document["content-type"])
	assert.Equal(t, "notes.txt", document["url"])
	assert.Equal(t, "1.0", document["version"])
	assert.Equal(t, 11.0, document["length"])
}

func TestDocumentService_Upload_UnsupportedType(t *testing.T) {
	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient("http://127.0.0.1:0", "", notifier)
	service := services.NewDocumentService(client, gateway.NewOCRClient("", notifier))

	path := filepath.Join(t.TempDir(), "binary.exe")
	assert.NoError(t, os.WriteFile(path, []byte{0x4d, 0x5a}, 0644))

	_, err := service.Upload(context.Background(), config.Default(), path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestDocumentService_Upload_SizeLimit(t *testing.T) {
	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient("http://127.0.0.1:0", "", notifier)
	service := services.NewDocumentService(client, gateway.NewOCRClient("", notifier))

	path := filepath.Join(t.TempDir(), "big.txt")
	f, err := os.Create(path)
	assert.NoError(t, err)
	assert.NoError(t, f.Truncate(services.MaxDocumentSize+1))
	assert.NoError(t, f.Close())

	_, err = service.Upload(context.Background(), config.Default(), path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}
