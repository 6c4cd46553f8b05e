package unit_tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragdesk/internal/gateway"
	"ragdesk/internal/tests/mocks"
)

func TestOCRClient_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.png", header.Filename)
		content, err := io.ReadAll(file)
		assert.NoError(t, err)
		assert.Equal(t, []byte("fake image"), content)
		json.NewEncoder(w).Encode(map[string]string{"text": "recognized text"})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewOCRClient(server.URL, notifier)

	text, err := client.Extract(context.Background(), "/tmp/scan.png", []byte("fake image"))
	assert.NoError(t, err)
	assert.Equal(t, "recognized text", text)
	assert.Len(t, notifier.Successes, 1)
}

func TestOCRClient_Extract_BackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "unreadable scan"})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewOCRClient(server.URL, notifier)

	_, err := client.Extract(context.Background(), "scan.png", []byte("x"))
	assert.Error(t, err)
	assert.Equal(t, "unreadable scan", err.Error())
	assert.Len(t, notifier.Errors, 1)
	assert.Empty(t, notifier.Successes)
}
