package gateway

import "encoding/json"

// Placeholder insertion keys sent with every chunking request until real key
// provisioning lands server-side.
// TODO: replace with keys from the attestation flow once /provide-quote is wired.
const (
	controllerPublicKey = "012345678901234567890123456789012345678901234567890123456789012345"
	recipientPrivateKey = "0123456789012345678901234567890123456789012345678901234567890123"
)

type modelActionRequest struct {
	Action string `json:"action"`
	Model  string `json:"model,omitempty"`
}

type modelListResponse struct {
	Models []string `json:"models"`
}

type modelChangeResponse struct {
	Success      bool   `json:"success"`
	NewModelPath string `json:"new_model_path"`
	Message      string `json:"message,omitempty"`
}

// ragConnectionBody is the connection shape the schema-admin endpoint takes:
// address and credentials only, no display name or ID.
type ragConnectionBody struct {
	Host     string  `json:"host"`
	Port     float64 `json:"port"`
	Name     string  `json:"name"`
	User     string  `json:"user"`
	Password string  `json:"password"`
}

type schemaAdminRequest struct {
	Action        string            `json:"action"`
	RagConnection ragConnectionBody `json:"rag_connection"`
}

type schemaAdminResponse struct {
	Message string `json:"message,omitempty"`
	Exists  bool   `json:"exists,omitempty"`
}

// chunkingConnectionBody additionally carries the display name and the raw
// selected-name pointer the profile was resolved from.
type chunkingConnectionBody struct {
	SearchedName   string  `json:"searched_name"`
	ConnectionName string  `json:"connection_name"`
	User           string  `json:"user"`
	Password       string  `json:"password"`
	Host           string  `json:"host"`
	Port           float64 `json:"port"`
	Name           string  `json:"name"`
}

// DocumentMeta describes the uploaded document inside a chunking request.
type DocumentMeta struct {
	Date        string `json:"date"`
	Version     string `json:"version"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
	Length      int    `json:"length"`
}

type ragInsertionParams struct {
	Document            DocumentMeta `json:"document"`
	ControllerPublicKey string       `json:"controller_public_key"`
	RecipientPrivateKey string       `json:"recipient_private_key"`
}

type chunkingRequest struct {
	Input              string                 `json:"input"`
	RagConnection      chunkingConnectionBody `json:"rag_connection"`
	RagInsertionParams ragInsertionParams     `json:"rag_insertion_params"`
}

type chunkEmbeddingRequest struct {
	AggregationRule   string `json:"aggregation_rule"`
	AggregationSample int    `json:"aggregation_sample"`
}

type chunkEmbeddingResponse struct {
	ChunkEmbedding []float64 `json:"chunk-embedding"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

// errorBody is the structured error payload backends attach to non-success
// responses; absent or unparsable bodies fall back to the status text.
type errorBody struct {
	Message string `json:"message"`
}

// ChunkResult is the opaque success payload of a chunking call, kept
// verbatim for display.
type ChunkResult = json.RawMessage
