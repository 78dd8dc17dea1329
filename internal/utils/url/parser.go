package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// BusinessName extracts the business name from a maps listing URL, the
// segment following /place/. Returns a sanitized, filesystem-safe name, or
// "business" when the URL carries no place segment.
func BusinessName(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "business"
	}

	segments := strings.Split(parsed.Path, "/")
	for i, seg := range segments {
		if seg == "place" && i+1 < len(segments) && segments[i+1] != "" {
			// Path segments arrive percent-decoded from url.Parse; plus
			// signs stand in for spaces in place slugs.
			name := strings.ReplaceAll(segments[i+1], "+", " ")
			return SanitizeName(name)
		}
	}
	return "business"
}

// SanitizeName maps a display name to a filesystem-safe token; characters
// outside [a-zA-Z0-9_-] become underscores.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "business"
	}
	cleaned := unsafeChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "business"
	}
	if len(cleaned) > 100 {
		cleaned = cleaned[:100]
	}
	return cleaned
}
