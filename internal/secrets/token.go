package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the engine's secrets in the OS keychain.
	KeyringService = "applyflow"

	// Account the backend API token is stored under.
	TokenAccount = "backend-token"

	// Env override for headless environments without a keychain.
	TokenEnv = "APPLYFLOW_BACKEND_TOKEN"
)

var ErrNoToken = errors.New("backend token not found (set it in keychain or via env)")

// GetBackendToken returns the API token the engine authenticates to the
// backend with. Keyring first, env fallback.
func GetBackendToken() (string, error) {
	if tok, err := keyring.Get(KeyringService, TokenAccount); err == nil && strings.TrimSpace(tok) != "" {
		return strings.TrimSpace(tok), nil
	}
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}
	return "", ErrNoToken
}

func SetBackendToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, TokenAccount, strings.TrimSpace(token))
}

func DeleteBackendToken() error {
	return keyring.Delete(KeyringService, TokenAccount)
}
