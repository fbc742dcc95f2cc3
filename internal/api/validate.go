package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const maxURLLength = 2048

// validateTargetURL checks and normalizes the audit root URL. A bare
// hostname gets an https scheme; anything that is not plain http(s)
// without credentials is rejected here, before the audit core sees it.
func validateTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	if len(raw) > maxURLLength {
		return "", fmt.Errorf("url exceeds %d characters", maxURLLength)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.User != nil {
		return "", errors.New("url must not contain credentials")
	}
	if u.Hostname() == "" {
		return "", errors.New("url must include a host")
	}
	return u.String(), nil
}
