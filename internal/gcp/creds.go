package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/Lllllllleong/pattadocumentflow/internal/config"
)

// ClientOptions returns the credential options shared by every Google client.
// Inline JSON wins over a credentials file; with neither, ADC is used.
func ClientOptions(cfg *config.Config) []option.ClientOption {
	creds := strings.TrimSpace(cfg.CredentialsJSON)
	if creds == "" {
		creds = strings.TrimSpace(cfg.CredentialsFile)
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
