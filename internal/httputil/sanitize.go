package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ValidateURL checks that a URL is well-formed and uses HTTP(S).
// Provider link URLs are opaque but must still be fetchable origins.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// SanitizeFilename removes path traversal and dangerous characters from a filename.
// Returns just the base name, stripped of any directory components.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)

	replacer := strings.NewReplacer(
		"..", "_",
		"/", "_",
		"\\", "_",
		"\x00", "",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)

	if name == "" || name == "." || name == ".." {
		return "untitled"
	}

	return name
}

// SafeOutputPath resolves and validates an output path, ensuring it stays
// within the target directory.
func SafeOutputPath(dir, filename string) (string, error) {
	sanitized := SanitizeFilename(filename)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, sanitized)

	resolved, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	if !strings.HasPrefix(resolved, absDir+string(filepath.Separator)) && resolved != absDir {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", resolved, absDir)
	}

	return resolved, nil
}
