package unit_tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragdesk/internal/config"
	"ragdesk/internal/gateway"
	"ragdesk/internal/tests/mocks"
)

func testConnection() config.RagConnection {
	return config.RagConnection{
		ConnectionName: "Dev",
		Host:           "db.local",
		Port:           5432,
		Name:           "app",
		User:           "admin",
		Password:       "secret",
		ID:             "id-1",
	}
}

func TestGatewayClient_ListModels(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/model-action", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"models": []string{"a.gguf", "b.gguf"}})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "secret-key", notifier)

	models, err := client.ListModels(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.gguf", "b.gguf"}, models)
	assert.Equal(t, "list-models", body["action"])

	assert.Len(t, notifier.Begun, 1)
	assert.Len(t, notifier.Successes, 1)
	assert.Empty(t, notifier.Errors)
}

func TestGatewayClient_ListModels_MissingArrayIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	_, err := client.ListModels(context.Background())
	assert.Error(t, err)
	assert.Len(t, notifier.Errors, 1)
	assert.Empty(t, notifier.Successes)
}

func TestGatewayClient_ChangeModel_BackendMessageWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "model file not found"})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	_, err := client.ChangeModel(context.Background(), "missing.gguf")
	assert.Error(t, err)
	assert.Equal(t, "model file not found", err.Error())
	assert.Len(t, notifier.Errors, 1)
}

func TestGatewayClient_ErrorFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	_, err := client.CreateSchema(context.Background(), testConnection())
	assert.Error(t, err)
	assert.Equal(t, "Not Found", err.Error())
}

func TestGatewayClient_SchemaExists(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rag_db_admin", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"exists": true})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	exists, err := client.SchemaExists(context.Background(), testConnection())
	assert.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, "exists", body["action"])
	conn := body["rag_connection"].(map[string]any)
	assert.Equal(t, "db.local", conn["host"])
	assert.Equal(t, 5432.0, conn["port"])
	assert.Equal(t, "app", conn["name"])
	assert.Equal(t, "admin", conn["user"])
}

func TestGatewayClient_SchemaAdmin_RequiresConnectionDetails(t *testing.T) {
	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient("http://127.0.0.1:0", "", notifier)

	_, err := client.DropSchema(context.Background(), config.RagConnection{Host: "db.local"})
	assert.Error(t, err)
	// Rejected before any notification or request is made.
	assert.Empty(t, notifier.Begun)
}

func TestGatewayClient_ChunkDocument_PayloadShape(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chunking", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"chunks": 3})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	doc := gateway.DocumentMeta{
		Date:        "2025-03-15T12:00:00Z",
		Version:     "1.0",
		ContentType: "text/plain",
		URL:         "notes.txt",
		Length:      11,
	}
	result, err := client.ChunkDocument(context.Background(), "hello world", "Dev", testConnection(), doc)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"chunks":3}`, string(result))

	assert.Equal(t, "hello world", body["input"])
	conn := body["rag_connection"].(map[string]any)
	assert.Equal(t, "Dev", conn["searched_name"])
	assert.Equal(t, "Dev", conn["connection_name"])
	params := body["rag_insertion_params"].(map[string]any)
	document := params["document"].(map[string]any)
	assert.Equal(t, "text/plain", document["content-type"])
	assert.Equal(t, 11.0, document["length"])
	assert.NotEmpty(t, params["controller_public_key"])
	assert.NotEmpty(t, params["recipient_private_key"])
}

func TestGatewayClient_ChunkEmbedding(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compute-chunk-vector", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]any{"chunk-embedding": []float64{0.1, 0.2}})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	vector, err := client.ChunkEmbedding(context.Background(), "average", 5)
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, vector)
	assert.Equal(t, "average", body["aggregation_rule"])
	assert.Equal(t, 5.0, body["aggregation_sample"])
}

func TestGatewayClient_StaleResponseIsDropped(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		blocked := false
		first.Do(func() {
			close(arrived)
			blocked = true
		})
		if blocked {
			<-release
		}
		json.NewEncoder(w).Encode(map[string]any{"models": []string{"a.gguf"}})
	}))
	defer server.Close()

	notifier := &mocks.NotifierMock{}
	client := gateway.NewClient(server.URL, "", notifier)

	firstDone := make(chan error, 1)
	go func() {
		_, err := client.ListModels(context.Background())
		firstDone <- err
	}()
	<-arrived

	// The second attempt supersedes the first while it is still in flight.
	models, err := client.ListModels(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.gguf"}, models)

	close(release)
	assert.ErrorIs(t, <-firstDone, gateway.ErrStaleResponse)

	// The superseded attempt closes its loading notification without a
	// terminal line; only the winning attempt reports success.
	assert.Len(t, notifier.Begun, 2)
	assert.Len(t, notifier.Successes, 1)
	assert.Empty(t, notifier.Errors)
	assert.Equal(t, 1, notifier.Dismissed)
}
