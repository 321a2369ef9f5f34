// Package validation runs the startup checks: configuration sanity, disk
// space, and reachability of the external services the generation pipeline
// depends on, with colored progress output on the console.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateEndpointURL checks that a URL parses and uses http or https with
// a host. Pure function, no network.
func ValidateEndpointURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fmt.Errorf("endpoint URL is empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}
