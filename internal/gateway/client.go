package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ragdesk/internal/config"
	"ragdesk/internal/notify"
)

// ErrStaleResponse marks a completion that arrived after a newer request was
// issued for the same action site; callers drop it without user feedback.
var ErrStaleResponse = errors.New("stale response dropped")

// Client talks to the inference server's action endpoints. Each action
// surfaces exactly one loading and one terminal notification per attempt,
// and a per-action request token drops completions that a newer attempt has
// superseded. Failures never mutate local state.
type Client struct {
	baseURL  string
	apiKey   string
	httpc    *http.Client
	notifier notify.Notifier

	mu     sync.Mutex
	tokens map[string]uint64
}

func NewClient(baseURL, apiKey string, notifier notify.Notifier) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		httpc:    &http.Client{Timeout: 120 * time.Second},
		notifier: notifier,
		tokens:   map[string]uint64{},
	}
}

func (c *Client) nextToken(action string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[action]++
	return c.tokens[action]
}

func (c *Client) isCurrent(action string, token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[action] == token
}

// ListModels fetches the model files the server can switch between.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	token := c.nextToken("model-action")
	h := c.notifier.Begin("Loading available models...")

	var resp modelListResponse
	err := c.postJSON(ctx, "/model-action", modelActionRequest{Action: "list-models"}, &resp)
	if !c.isCurrent("model-action", token) {
		h.Dismiss()
		return nil, ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to load models: %v", err))
		return nil, err
	}
	if resp.Models == nil {
		err := fmt.Errorf(`invalid response format: "models" array not found`)
		h.Error(fmt.Sprintf("Failed to load models: %v", err))
		return nil, err
	}
	h.Success(fmt.Sprintf("Loaded %d models", len(resp.Models)))
	return resp.Models, nil
}

// ChangeModel asks the server to swap the active model and returns the new
// model path on success.
func (c *Client) ChangeModel(ctx context.Context, model string) (string, error) {
	token := c.nextToken("model-action")
	h := c.notifier.Begin(fmt.Sprintf("Switching model to %q...", model))

	var resp modelChangeResponse
	err := c.postJSON(ctx, "/model-action", modelActionRequest{Action: "change-model", Model: model}, &resp)
	if !c.isCurrent("model-action", token) {
		h.Dismiss()
		return "", ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to change model: %v", err))
		return "", err
	}
	if !resp.Success || resp.NewModelPath == "" {
		msg := resp.Message
		if msg == "" {
			msg = "model change refused without a success indication"
		}
		err := errors.New(msg)
		h.Error(fmt.Sprintf("Failed to change model: %v", err))
		return "", err
	}
	h.Success(fmt.Sprintf("Model changed to %s", resp.NewModelPath))
	return resp.NewModelPath, nil
}

// CreateSchema creates the RAG schema on the given connection.
func (c *Client) CreateSchema(ctx context.Context, conn config.RagConnection) (string, error) {
	return c.schemaAdmin(ctx, "create", conn)
}

// DropSchema drops the RAG schema on the given connection.
func (c *Client) DropSchema(ctx context.Context, conn config.RagConnection) (string, error) {
	return c.schemaAdmin(ctx, "drop", conn)
}

// SchemaExists checks whether the RAG schema is present on the connection.
func (c *Client) SchemaExists(ctx context.Context, conn config.RagConnection) (bool, error) {
	if err := requireConnectionDetails(conn); err != nil {
		return false, err
	}
	token := c.nextToken("rag_db_admin")
	h := c.notifier.Begin("Checking RAG schema...")

	var resp schemaAdminResponse
	err := c.postJSON(ctx, "/rag_db_admin", schemaAdminRequest{
		Action:        "exists",
		RagConnection: adminBody(conn),
	}, &resp)
	if !c.isCurrent("rag_db_admin", token) {
		h.Dismiss()
		return false, ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to check schema existence: %v", err))
		return false, err
	}
	if resp.Exists {
		h.Success("RAG Database schema exists.")
	} else {
		h.Success("RAG Database schema does NOT exist.")
	}
	return resp.Exists, nil
}

func (c *Client) schemaAdmin(ctx context.Context, action string, conn config.RagConnection) (string, error) {
	if err := requireConnectionDetails(conn); err != nil {
		return "", err
	}
	token := c.nextToken("rag_db_admin")
	h := c.notifier.Begin(fmt.Sprintf("Running schema %s...", action))

	var resp schemaAdminResponse
	err := c.postJSON(ctx, "/rag_db_admin", schemaAdminRequest{
		Action:        action,
		RagConnection: adminBody(conn),
	}, &resp)
	if !c.isCurrent("rag_db_admin", token) {
		h.Dismiss()
		return "", ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to %s schema: %v", action, err))
		return "", err
	}
	h.Success(fmt.Sprintf("Schema %s successful: %s", action, resp.Message))
	return resp.Message, nil
}

// ChunkDocument submits extracted document text for chunking and embedding
// into the RAG store behind the given connection.
func (c *Client) ChunkDocument(ctx context.Context, input, searchedName string, conn config.RagConnection, doc DocumentMeta) (ChunkResult, error) {
	token := c.nextToken("chunking")
	h := c.notifier.Begin(fmt.Sprintf("Uploading %q for chunking...", doc.URL))

	body := chunkingRequest{
		Input: input,
		RagConnection: chunkingConnectionBody{
			SearchedName:   searchedName,
			ConnectionName: conn.ConnectionName,
			User:           conn.User,
			Password:       conn.Password,
			Host:           conn.Host,
			Port:           conn.Port,
			Name:           conn.Name,
		},
		RagInsertionParams: ragInsertionParams{
			Document:            doc,
			ControllerPublicKey: controllerPublicKey,
			RecipientPrivateKey: recipientPrivateKey,
		},
	}

	var result json.RawMessage
	err := c.postJSON(ctx, "/chunking", body, &result)
	if !c.isCurrent("chunking", token) {
		h.Dismiss()
		return nil, ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to upload %q: %v", doc.URL, err))
		return nil, err
	}
	h.Success(fmt.Sprintf("%q uploaded and chunked successfully", doc.URL))
	return ChunkResult(result), nil
}

// ChunkEmbedding asks the server for the embedding vector of the last
// ingested chunk set. Rule is "average" or "last"; sample bounds the
// averaging window.
func (c *Client) ChunkEmbedding(ctx context.Context, rule string, sample int) ([]float64, error) {
	token := c.nextToken("compute-chunk-vector")
	h := c.notifier.Begin("Computing chunk embedding...")

	var resp chunkEmbeddingResponse
	err := c.postJSON(ctx, "/compute-chunk-vector", chunkEmbeddingRequest{
		AggregationRule:   rule,
		AggregationSample: sample,
	}, &resp)
	if !c.isCurrent("compute-chunk-vector", token) {
		h.Dismiss()
		return nil, ErrStaleResponse
	}
	if err != nil {
		h.Error(fmt.Sprintf("Failed to compute embedding: %v", err))
		return nil, err
	}
	h.Success(fmt.Sprintf("Embedding vector of %d elements", len(resp.ChunkEmbedding)))
	return resp.ChunkEmbedding, nil
}

func adminBody(conn config.RagConnection) ragConnectionBody {
	return ragConnectionBody{
		Host:     conn.Host,
		Port:     conn.Port,
		Name:     conn.Name,
		User:     conn.User,
		Password: conn.Password,
	}
}

func requireConnectionDetails(conn config.RagConnection) error {
	if conn.Host == "" || conn.Name == "" || conn.User == "" {
		return fmt.Errorf("missing connection details (host, name, user)")
	}
	return nil
}

// postJSON issues one JSON request. Non-success responses are decoded for a
// structured message, falling back to the transport status text.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var backend errorBody
		if jsonErr := json.Unmarshal(data, &backend); jsonErr == nil && backend.Message != "" {
			return errors.New(backend.Message)
		}
		return errors.New(http.StatusText(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
