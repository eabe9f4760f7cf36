package version

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// version endpoints answer with a handful of bytes; anything bigger is not
// a version file
const maxTextResponse = 4 << 10

// TextSource resolves the latest version from an endpoint answering with a
// bare version string in plain text.
type TextSource struct {
	url    string
	client *http.Client
}

// NewTextSource creates a source reading url.
// When client is nil [http.DefaultClient] is used.
func NewTextSource(url string, client *http.Client) *TextSource {
	if client == nil {
		client = http.DefaultClient
	}

	return &TextSource{
		url:    url,
		client: client,
	}
}

func (s *TextSource) String() string {
	return s.url
}

// Latest returns the first non empty line of the response body.
func (s *TextSource) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query version endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("received unexpected response from version endpoint: http%d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxTextResponse))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read version endpoint response: %w", err)
	}

	return "", errors.New("version endpoint returned an empty response")
}
