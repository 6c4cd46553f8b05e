package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ragdesk/internal/config"
)

// settingsFileName is the fixed storage key for the configuration record.
const settingsFileName = "config.json"

// SettingsService owns the durable configuration record. The record is
// always persisted whole; a failed validation leaves the stored file
// untouched.
type SettingsService interface {
	Load() config.Config
	Save(candidate map[string]any) (config.Config, error)
	SetKey(key, value string) (config.Config, error)
	AddOrUpdateConnection(profile config.RagConnection) (config.Config, error)
	RemoveConnection(name string) (config.Config, error)
	SelectConnection(name string) (config.Config, error)
	Reset() error
	Path() string
}

type settingsService struct {
	path string
}

// DefaultSettingsPath places the record under the user config dir,
// creating the app directory on first use.
func DefaultSettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appDir := filepath.Join(configDir, "ragdesk")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(appDir, settingsFileName), nil
}

func NewSettingsService(path string) SettingsService {
	return &settingsService{path: path}
}

func (s *settingsService) Path() string {
	return s.path
}

// Load reads the stored record. Missing or corrupt data falls back to the
// defaults without surfacing an error; stored keys are merged over the
// defaults so new keys pick up their default value.
func (s *settingsService) Load() config.Config {
	cfg := config.Default()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logrus.Debugf("read settings %s: %v", s.path, err)
		}
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		logrus.Warnf("corrupt settings at %s, using defaults: %v", s.path, err)
		return config.Default()
	}
	if cfg.RagConnections == nil {
		cfg.RagConnections = []config.RagConnection{}
	}
	return cfg
}

// Save validates the candidate against the default record's kinds,
// reconciles the connection list against the selected name and persists the
// whole record atomically. The first validation failure aborts the save
// with the offending key; nothing is written in that case.
func (s *settingsService) Save(candidate map[string]any) (config.Config, error) {
	cfg, err := config.FromCandidate(candidate)
	if err != nil {
		logrus.Error(err)
		return config.Config{}, err
	}

	cfg = reconcileConnections(cfg)

	if err := s.persist(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// SetKey updates one setting from its textual form and saves the whole
// record. The key must exist in the default record; boolean keys are parsed
// here since the candidate map carries real booleans, and numeric strings
// are coerced by the regular save validation.
func (s *settingsService) SetKey(key, value string) (config.Config, error) {
	if !slices.Contains(config.Keys(), key) {
		return config.Config{}, fmt.Errorf("unknown setting %q", key)
	}

	candidate := s.Load().ToCandidate()
	if slices.Contains(config.BoolKeys(), key) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return config.Config{}, &config.ValidationError{Key: key, Reason: "must be boolean"}
		}
		candidate[key] = b
	} else {
		candidate[key] = value
	}
	return s.Save(candidate)
}

// reconcileConnections folds the currently edited connection profile back
// into the list. An existing display name is updated in place, keeping its
// ID and position; a new real name is appended with a fresh ID; the
// sentinel (or an empty pointer) saves no connection at all.
func reconcileConnections(cfg config.Config) config.Config {
	selected := cfg.SelectedRagConnectionName
	edited := config.SelectedRagConnection(cfg)

	for i, conn := range cfg.RagConnections {
		if conn.ConnectionName == selected {
			cfg.RagConnections[i].Host = edited.Host
			cfg.RagConnections[i].Port = edited.Port
			cfg.RagConnections[i].Name = edited.Name
			cfg.RagConnections[i].User = edited.User
			cfg.RagConnections[i].Password = edited.Password
			return cfg
		}
	}

	if selected == "" || selected == config.SentinelConnectionName {
		// New-connection-in-progress without a name yet; deliberate no-op.
		return cfg
	}

	edited.ConnectionName = selected
	edited.ID = uuid.NewString()
	cfg.RagConnections = append(cfg.RagConnections, edited)
	return cfg
}

// AddOrUpdateConnection saves a fully specified profile. Re-using an
// existing display name overwrites that entry in place (same ID, same
// position); a new name is appended with a fresh ID. Either way the profile
// becomes the selected connection.
func (s *settingsService) AddOrUpdateConnection(profile config.RagConnection) (config.Config, error) {
	name := strings.TrimSpace(profile.ConnectionName)
	if name == "" || name == config.SentinelConnectionName {
		return config.Config{}, fmt.Errorf("a valid connection name is required")
	}
	if strings.TrimSpace(profile.Host) == "" {
		return config.Config{}, fmt.Errorf("a valid host is required")
	}
	if profile.Port <= 0 {
		return config.Config{}, fmt.Errorf("a valid port number is required")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return config.Config{}, fmt.Errorf("a valid database name is required")
	}
	if strings.TrimSpace(profile.User) == "" {
		return config.Config{}, fmt.Errorf("a valid user is required")
	}

	cfg := s.Load()
	found := false
	for i, conn := range cfg.RagConnections {
		if conn.ConnectionName == name {
			profile.ConnectionName = name
			profile.ID = conn.ID
			cfg.RagConnections[i] = profile
			found = true
			break
		}
	}
	if !found {
		profile.ConnectionName = name
		profile.ID = uuid.NewString()
		cfg.RagConnections = append(cfg.RagConnections, profile)
	}
	cfg.SelectedRagConnectionName = name

	if err := s.persist(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// RemoveConnection deletes a profile by display name. The selection pointer
// is cleared when it pointed at the removed profile.
func (s *settingsService) RemoveConnection(name string) (config.Config, error) {
	cfg := s.Load()
	kept := cfg.RagConnections[:0:0]
	found := false
	for _, conn := range cfg.RagConnections {
		if conn.ConnectionName == name {
			found = true
			continue
		}
		kept = append(kept, conn)
	}
	if !found {
		return config.Config{}, fmt.Errorf("no connection named %q", name)
	}
	cfg.RagConnections = kept
	if cfg.SelectedRagConnectionName == name {
		cfg.SelectedRagConnectionName = ""
	}

	if err := s.persist(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// SelectConnection points the record at an existing profile by name.
func (s *settingsService) SelectConnection(name string) (config.Config, error) {
	cfg := s.Load()
	for _, conn := range cfg.RagConnections {
		if conn.ConnectionName == name {
			cfg.SelectedRagConnectionName = name
			if err := s.persist(cfg); err != nil {
				return config.Config{}, err
			}
			return cfg, nil
		}
	}
	return config.Config{}, fmt.Errorf("no connection named %q", name)
}

// Reset restores the built-in defaults.
func (s *settingsService) Reset() error {
	return s.persist(config.Default())
}

// persist serializes the whole record and renames it into place so a
// partial write can never corrupt the stored file.
func (s *settingsService) persist(cfg config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
