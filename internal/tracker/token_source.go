package tracker

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvTokenSource resolves installation references to tokens from the
// environment (TRACKER_TOKEN_<ref>). It stands in for the real credential
// issuer in development and tests; production wires a delegated-credential
// service behind the same interface.
type EnvTokenSource struct{}

// InstallationToken implements TokenSource.
func (EnvTokenSource) InstallationToken(_ context.Context, installationRef string) (string, error) {
	key := "TRACKER_TOKEN_" + sanitizeRef(installationRef)
	if token := os.Getenv(key); token != "" {
		return token, nil
	}
	if token := os.Getenv("TRACKER_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token for installation %q", installationRef)
}

func sanitizeRef(ref string) string {
	replacer := strings.NewReplacer("-", "_", "/", "_", ".", "_")
	return strings.ToUpper(replacer.Replace(ref))
}

// StaticTokenSource serves a fixed token map, used by tests.
type StaticTokenSource map[string]string

// InstallationToken implements TokenSource.
func (s StaticTokenSource) InstallationToken(_ context.Context, installationRef string) (string, error) {
	if token, ok := s[installationRef]; ok {
		return token, nil
	}
	return "", fmt.Errorf("no token for installation %q", installationRef)
}
