package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cross-field consistency after defaults are applied.
// Missing tx values are not an error here; they may arrive per request.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		VarAPIURL:         c.TX.APIURL,
		VarGogsURL:        c.TX.GogsURL,
		"source_url_base": c.TX.SourceURLBase,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q must be an absolute URL", name, raw)
		}
	}
	if c.Storage.Backend == StorageS3 && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required for the s3 backend")
	}
	if c.Notify.Enabled && c.Notify.NATSURL == "" {
		return fmt.Errorf("notify.nats_url is required when notify is enabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (allowed: text|json)", c.Logging.Format)
	}
	if c.Fetch.MaxRetries > 10 {
		return fmt.Errorf("fetch.max_retries too large: %d (max 10)", c.Fetch.MaxRetries)
	}
	return nil
}
