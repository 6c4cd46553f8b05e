package config

import (
	"testing"
)

func TestNumericKeysDerivedFromDefaults(t *testing.T) {
	keys := NumericKeys()
	want := map[string]bool{
		"temperature": true,
		"top_k":       true,
		"max_tokens":  true,
	}
	got := map[string]bool{}
	for _, k := range keys {
		got[k] = true
	}
	for k := range want {
		if !got[k] {
			t.Fatalf("expected %s in numeric keys, got %v", k, keys)
		}
	}
	for _, k := range []string{"apiKey", "useRAG", "rag_connections", "selected_rag_connection_name"} {
		if got[k] {
			t.Fatalf("%s must not be a numeric key", k)
		}
	}
}

func TestBoolKeysDerivedFromDefaults(t *testing.T) {
	got := map[string]bool{}
	for _, k := range BoolKeys() {
		got[k] = true
	}
	for _, k := range []string{"useRAG", "useRERANKING", "showTokensPerSecond", "showThoughtInProgress", "excludeThoughtOnReq", "pyIntepreterEnabled"} {
		if !got[k] {
			t.Fatalf("expected %s in bool keys, got %v", k, BoolKeys())
		}
	}
	for _, k := range []string{"temperature", "apiKey", "rag_connections"} {
		if got[k] {
			t.Fatalf("%s must not be a bool key", k)
		}
	}
}

func TestSelectedRagConnection_SentinelReturnsPlaceholder(t *testing.T) {
	cfg := Default()
	cfg.RagConnections = []RagConnection{
		{ConnectionName: "Main DB", Host: "db.internal", Port: 5433, Name: "main", User: "svc", ID: "1"},
	}
	cfg.SelectedRagConnectionName = SentinelConnectionName

	conn := SelectedRagConnection(cfg)
	if conn.ID != "" {
		t.Fatalf("placeholder must have empty ID, got %q", conn.ID)
	}
	if conn.Host != "localhost" || conn.Port != 5432 || conn.Name != "klave_rag" || conn.User != "postgres" {
		t.Fatalf("unexpected placeholder: %+v", conn)
	}
}

func TestSelectedRagConnection_UnknownNameFallsBack(t *testing.T) {
	cfg := Default()
	cfg.RagConnections = []RagConnection{
		{ConnectionName: "Main DB", Host: "db.internal", Port: 5433, Name: "main", User: "svc", ID: "1"},
	}
	cfg.SelectedRagConnectionName = "Gone"

	conn := SelectedRagConnection(cfg)
	if conn.ConnectionName != "Gone" {
		t.Fatalf("placeholder keeps the selected name, got %q", conn.ConnectionName)
	}
	if conn.ID != "" {
		t.Fatalf("fallback must not carry a persisted ID")
	}
}

func TestSelectedRagConnection_FoundReturnsCopy(t *testing.T) {
	cfg := Default()
	cfg.RagConnections = []RagConnection{
		{ConnectionName: "Main DB", Host: "db.internal", Port: 5433, Name: "main", User: "svc", ID: "1"},
	}
	cfg.SelectedRagConnectionName = "Main DB"

	conn := SelectedRagConnection(cfg)
	if conn.Host != "db.internal" || conn.ID != "1" {
		t.Fatalf("expected stored entry, got %+v", conn)
	}

	conn.Host = "mutated"
	if cfg.RagConnections[0].Host != "db.internal" {
		t.Fatalf("resolver must return a copy, stored entry was mutated")
	}
}

func TestSelectedRagConnection_EmptyNameUsesDefaultLabel(t *testing.T) {
	cfg := Default()
	conn := SelectedRagConnection(cfg)
	if conn.ConnectionName != DefaultConnectionLabel {
		t.Fatalf("expected %q, got %q", DefaultConnectionLabel, conn.ConnectionName)
	}
}
