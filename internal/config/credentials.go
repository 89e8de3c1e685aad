package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EnvAPIKey overrides the stored credential when set.
const EnvAPIKey = "OPENROUTER_API_KEY"

type Credentials struct {
	APIKey string `json:"api_key"`
}

// credMu guards read-modify-write cycles on the credentials file.
var credMu sync.Mutex

func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "credentials.json")
}

// APIKey resolves the credential: environment first, then the credentials
// file. Empty string means no credential.
func APIKey() string {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key
	}
	creds, err := LoadCredentials()
	if err != nil {
		return ""
	}
	return creds.APIKey
}

func LoadCredentials() (Credentials, error) {
	return LoadCredentialsFrom(CredentialsPath())
}

func LoadCredentialsFrom(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("reading credentials: %w", err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials %s: %w", path, err)
	}

	return creds, nil
}

func SaveCredential(apiKey string) error {
	return SaveCredentialTo(CredentialsPath(), apiKey)
}

func SaveCredentialTo(path, apiKey string) error {
	credMu.Lock()
	defer credMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(Credentials{APIKey: apiKey}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func DeleteCredential() error {
	return DeleteCredentialFrom(CredentialsPath())
}

func DeleteCredentialFrom(path string) error {
	credMu.Lock()
	defer credMu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}
