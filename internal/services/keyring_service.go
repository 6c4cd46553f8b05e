package services

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const serviceName = "ragdesk"

// KeyringService keeps server API keys in the OS keyring instead of the
// plain settings file. Known server names are tracked in a side file so the
// keys can be enumerated.
type KeyringService struct {
}

func NewKeyringService() *KeyringService {
	return &KeyringService{}
}

func (s *KeyringService) StoreAPIKey(server string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	if server == "" {
		return errors.New("server name is required")
	}

	err := keyring.Set(serviceName, server, string(apiKey))
	if err != nil {
		return err
	}

	return s.addServer(server)
}

func (s *KeyringService) GetAPIKey(server string) (string, error) {
	if server == "" {
		return "", errors.New("server name is required")
	}
	return keyring.Get(serviceName, server)
}

func (s *KeyringService) DeleteAPIKey(server string) error {
	if server == "" {
		return errors.New("server name is required")
	}

	err := keyring.Delete(serviceName, server)
	if err != nil {
		return err
	}

	return s.removeServer(server)
}

func (s *KeyringService) ListAPIKeys() ([]string, error) {
	servers, err := s.loadServers()
	if err != nil {
		return nil, err
	}

	var results []string
	for _, server := range servers {
		if _, err := keyring.Get(serviceName, server); err != nil {
			continue
		}
		results = append(results, server)
	}
	return results, nil
}

func (s *KeyringService) getServersConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appDir := filepath.Join(configDir, "ragdesk")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(appDir, "servers.json"), nil
}

func (s *KeyringService) loadServers() ([]string, error) {
	path, err := s.getServersConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var servers []string
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *KeyringService) saveServers(servers []string) error {
	path, err := s.getServersConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(servers, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (s *KeyringService) addServer(server string) error {
	servers, err := s.loadServers()
	if err != nil {
		return err
	}

	for _, known := range servers {
		if known == server {
			return nil
		}
	}

	servers = append(servers, server)
	return s.saveServers(servers)
}

func (s *KeyringService) removeServer(server string) error {
	servers, err := s.loadServers()
	if err != nil {
		return err
	}

	var remaining []string
	for _, known := range servers {
		if known != server {
			remaining = append(remaining, known)
		}
	}

	return s.saveServers(remaining)
}
