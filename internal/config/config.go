package config

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// SentinelConnectionName marks "no connection selected / new connection in
// progress" in the selected-connection pointer.
const SentinelConnectionName = "..."

// DefaultConnectionLabel names the synthesized fallback profile.
const DefaultConnectionLabel = "Default Connection"

// RagConnection is one addressable external data-store endpoint. The display
// name is the unique key within a config's connection list; ID is assigned
// once on first save and never changes.
type RagConnection struct {
	ConnectionName string  `json:"connection_name"`
	Host           string  `json:"host"`
	Port           float64 `json:"port"`
	Name           string  `json:"name"`
	User           string  `json:"user"`
	Password       string  `json:"password,omitempty"`
	ID             string  `json:"id"`
}

// Config is the flat per-user configuration record. Keep every key single
// level and keep the default value's kind stable across releases; numeric
// keys are derived from this struct's shape, never listed by hand.
type Config struct {
	APIKey                string  `json:"apiKey"`
	SystemMessage         string  `json:"systemMessage"`
	ShowTokensPerSecond   bool    `json:"showTokensPerSecond"`
	ShowThoughtInProgress bool    `json:"showThoughtInProgress"`
	ExcludeThoughtOnReq   bool    `json:"excludeThoughtOnReq"`
	Samplers              string  `json:"samplers"`
	Temperature           float64 `json:"temperature"`
	DynatempRange         float64 `json:"dynatemp_range"`
	DynatempExponent      float64 `json:"dynatemp_exponent"`
	TopK                  float64 `json:"top_k"`
	TopP                  float64 `json:"top_p"`
	MinP                  float64 `json:"min_p"`
	XTCProbability        float64 `json:"xtc_probability"`
	XTCThreshold          float64 `json:"xtc_threshold"`
	TypicalP              float64 `json:"typical_p"`
	RepeatLastN           float64 `json:"repeat_last_n"`
	RepeatPenalty         float64 `json:"repeat_penalty"`
	PresencePenalty       float64 `json:"presence_penalty"`
	FrequencyPenalty      float64 `json:"frequency_penalty"`
	DryMultiplier         float64 `json:"dry_multiplier"`
	DryBase               float64 `json:"dry_base"`
	DryAllowedLength      float64 `json:"dry_allowed_length"`
	DryPenaltyLastN       float64 `json:"dry_penalty_last_n"`
	MaxTokens             float64 `json:"max_tokens"`
	// Custom holds an arbitrary user JSON object, stringified; consumers
	// parse it themselves and it is never schema-validated here.
	Custom string `json:"custom"`
	// experimental features
	PyInterpreterEnabled bool    `json:"pyIntepreterEnabled"`
	UseRAG               bool    `json:"useRAG"`
	UseReranking         bool    `json:"useRERANKING"`
	NumChunksToRetrieve  float64 `json:"num_chunks_to_retrieve"`
	NumMaxAugmentations  float64 `json:"num_max_augmentations"`

	SelectedRagConnectionName string          `json:"selected_rag_connection_name"`
	RagConnections            []RagConnection `json:"rag_connections"`
}

// Default returns the built-in configuration record. Sampling defaults match
// the server's common.h.
func Default() Config {
	return Config{
		APIKey:                "",
		SystemMessage:         "",
		ShowTokensPerSecond:   false,
		ShowThoughtInProgress: false,
		ExcludeThoughtOnReq:   true,
		Samplers:              "edkypmxt",
		Temperature:           0.8,
		DynatempRange:         0.0,
		DynatempExponent:      1.0,
		TopK:                  40,
		TopP:                  0.95,
		MinP:                  0.05,
		XTCProbability:        0.0,
		XTCThreshold:          0.1,
		TypicalP:              1.0,
		RepeatLastN:           64,
		RepeatPenalty:         1.0,
		PresencePenalty:       0.0,
		FrequencyPenalty:      0.0,
		DryMultiplier:         0.0,
		DryBase:               1.75,
		DryAllowedLength:      2,
		DryPenaltyLastN:       -1,
		MaxTokens:             -1,
		Custom:                "",
		PyInterpreterEnabled:  false,
		UseRAG:                false,
		UseReranking:          false,
		NumChunksToRetrieve:   7,
		NumMaxAugmentations:   3,

		SelectedRagConnectionName: "",
		RagConnections:            []RagConnection{},
	}
}

// Info maps setting names to their help text.
var Info = map[string]string{
	"apiKey":                       "Set the API Key if you are using --api-key option for the server.",
	"systemMessage":                "The starting message that defines how model should behave.",
	"samplers":                     `The order at which samplers are applied, in simplified way. Default is "dkypmxt": dry->top_k->typ_p->top_p->min_p->xtc->temperature`,
	"temperature":                  "Controls the randomness of the generated text by affecting the probability distribution of the output tokens. Higher = more random, lower = more focused.",
	"dynatemp_range":               "Addon for the temperature sampler. The added value to the range of dynamic temperature, which adjusts probabilities by entropy of tokens.",
	"dynatemp_exponent":            "Addon for the temperature sampler. Smoothes out the probability redistribution based on the most probable token.",
	"top_k":                        "Keeps only k top tokens.",
	"top_p":                        "Limits tokens to those that together have a cumulative probability of at least p",
	"min_p":                        "Limits tokens based on the minimum probability for a token to be considered, relative to the probability of the most likely token.",
	"xtc_probability":              "XTC sampler cuts out top tokens; this parameter controls the chance of cutting tokens at all. 0 disables XTC.",
	"xtc_threshold":                "XTC sampler cuts out top tokens; this parameter controls the token probability that is required to cut that token.",
	"typical_p":                    "Sorts and limits tokens based on the difference between log-probability and entropy.",
	"repeat_last_n":                "Last n tokens to consider for penalizing repetition",
	"repeat_penalty":               "Controls the repetition of token sequences in the generated text",
	"presence_penalty":             "Limits tokens based on whether they appear in the output or not.",
	"frequency_penalty":            "Limits tokens based on how often they appear in the output.",
	"dry_multiplier":               "DRY sampling reduces repetition in generated text even across long contexts. This parameter sets the DRY sampling multiplier.",
	"dry_base":                     "DRY sampling reduces repetition in generated text even across long contexts. This parameter sets the DRY sampling base value.",
	"dry_allowed_length":           "DRY sampling reduces repetition in generated text even across long contexts. This parameter sets the allowed length for DRY sampling.",
	"dry_penalty_last_n":           "DRY sampling reduces repetition in generated text even across long contexts. This parameter sets DRY penalty for the last n tokens.",
	"max_tokens":                   "The maximum number of token per output.",
	"selected_rag_connection_name": "The identifier of the rag connection.",
	"host":                         "The host of the rag connection.",
	"name":                         "The name of the rag on the rag connection (there can be several rags on one connection).",
	"user":                         "The user login on the rag connection.",
	"password":                     "The user password on the rag connection.",
	"custom":                       "",
}

const (
	keySelectedConnection = "selected_rag_connection_name"
	keyConnections        = "rag_connections"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindBool
	kindOther
)

// fieldKeys lists the json keys of the Config struct in declaration order.
var fieldKeys = indexFields()

func indexFields() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, jsonKey(t.Field(i)))
	}
	return keys
}

func jsonKey(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	return strings.Split(tag, ",")[0]
}

func kindOf(f reflect.StructField) fieldKind {
	switch f.Type.Kind() {
	case reflect.String:
		return kindString
	case reflect.Float64, reflect.Float32, reflect.Int, reflect.Int64:
		return kindNumber
	case reflect.Bool:
		return kindBool
	default:
		return kindOther
	}
}

// NumericKeys lists the config keys whose default value is numeric. It is
// recomputed from the Config shape so it can never drift from the record.
func NumericKeys() []string {
	t := reflect.TypeOf(Config{})
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		if kindOf(t.Field(i)) == kindNumber {
			keys = append(keys, jsonKey(t.Field(i)))
		}
	}
	return keys
}

// BoolKeys lists the config keys whose default value is boolean.
func BoolKeys() []string {
	t := reflect.TypeOf(Config{})
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		if kindOf(t.Field(i)) == kindBool {
			keys = append(keys, jsonKey(t.Field(i)))
		}
	}
	return keys
}

// Keys lists every key of the configuration record in declaration order.
func Keys() []string {
	out := make([]string, len(fieldKeys))
	copy(out, fieldKeys)
	return out
}

// ValidationError reports why a candidate record was rejected. Save is
// all-or-nothing: the first ValidationError aborts the whole save.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: value for %s %s", e.Key, e.Reason)
}

const (
	reasonMustBeString  = "must be string"
	reasonMustBeNumeric = "must be numeric"
	reasonMustBeBoolean = "must be boolean"
	reasonUnknownKind   = "has unknown default kind"
)

// FromCandidate validates a full candidate record (a JSON-decoded map)
// against the default record's kinds and returns the coerced Config.
// String and boolean values must arrive as-is; numeric values may arrive as
// numbers or numeric strings and are stored coerced. The selected-connection
// pointer and the connection list are exempt from scalar validation and are
// carried over verbatim.
func FromCandidate(candidate map[string]any) (Config, error) {
	out := Default()
	v := reflect.ValueOf(&out).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := jsonKey(field)
		if key == keySelectedConnection || key == keyConnections {
			continue
		}
		raw, ok := candidate[key]
		if !ok {
			continue
		}
		switch kindOf(field) {
		case kindString:
			s, ok := raw.(string)
			if !ok {
				return Config{}, &ValidationError{Key: key, Reason: reasonMustBeString}
			}
			v.Field(i).SetString(s)
		case kindNumber:
			num, err := coerceNumber(raw)
			if err != nil {
				return Config{}, &ValidationError{Key: key, Reason: reasonMustBeNumeric}
			}
			v.Field(i).SetFloat(num)
		case kindBool:
			b, ok := raw.(bool)
			if !ok {
				return Config{}, &ValidationError{Key: key, Reason: reasonMustBeBoolean}
			}
			v.Field(i).SetBool(b)
		default:
			// A non-string/number/bool scalar default is a bug in this
			// struct, not bad user input.
			return Config{}, &ValidationError{Key: key, Reason: reasonUnknownKind}
		}
	}

	if raw, ok := candidate[keySelectedConnection]; ok {
		if s, ok := raw.(string); ok {
			out.SelectedRagConnectionName = s
		}
	}
	if raw, ok := candidate[keyConnections]; ok {
		conns, err := decodeConnections(raw)
		if err != nil {
			return Config{}, &ValidationError{Key: keyConnections, Reason: "must be a connection list"}
		}
		out.RagConnections = conns
	}
	return out, nil
}

func coerceNumber(raw any) (float64, error) {
	switch val := raw.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, fmt.Errorf("empty numeric value")
		}
		num, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return 0, fmt.Errorf("non-finite numeric value")
		}
		return num, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", raw)
	}
}

func decodeConnections(raw any) ([]RagConnection, error) {
	if conns, ok := raw.([]RagConnection); ok {
		out := make([]RagConnection, len(conns))
		copy(out, conns)
		return out, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var conns []RagConnection
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []RagConnection{}
	}
	return conns, nil
}

// ToCandidate renders the record as a JSON-decoded map, the shape edit
// drafts are made of.
func (c Config) ToCandidate() map[string]any {
	data, err := json.Marshal(c)
	if err != nil {
		// Config is a plain struct of marshallable fields.
		panic(fmt.Sprintf("marshal config: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("unmarshal config: %v", err))
	}
	return out
}

// SelectedRagConnection resolves the record's selected-connection pointer to
// a concrete profile. Pure and side-effect free; an unset pointer, the
// sentinel, or a name missing from the list all fall back to a synthesized
// placeholder with an empty ID, never an error. The returned value is a
// copy; mutating it does not touch the stored list.
func SelectedRagConnection(cfg Config) RagConnection {
	name := cfg.SelectedRagConnectionName
	if name != "" && name != SentinelConnectionName {
		for _, conn := range cfg.RagConnections {
			if conn.ConnectionName == name {
				return conn
			}
		}
		// Selected but gone from the list (edited or removed elsewhere);
		// fall through to the placeholder as if it were unsaved.
	}

	label := name
	if label == "" {
		label = DefaultConnectionLabel
	}
	return RagConnection{
		ConnectionName: label,
		Host:           "localhost",
		Port:           5432,
		Name:           "klave_rag",
		User:           "postgres",
		Password:       "admin",
		ID:             "",
	}
}
