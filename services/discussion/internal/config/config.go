package config

import (
	"os"
	"strings"
)

type Config struct {
	// AttachmentServiceURL is the base URL of the attachment storage
	// collaborator. Empty disables releases (development without uploads).
	AttachmentServiceURL string
}

func Load() Config {
	return Config{
		AttachmentServiceURL: strings.TrimSpace(os.Getenv("ATTACHMENT_SERVICE_URL")),
	}
}
