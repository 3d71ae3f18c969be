package httputil

import (
	"fmt"
	"io"
	"net/http"
)

// DefaultFetchLimit caps remote image downloads.
const DefaultFetchLimit = 20 << 20

// Fetch downloads url and returns at most maxBytes bytes. maxBytes <= 0
// selects DefaultFetchLimit. Bodies over the limit are rejected rather
// than truncated.
func Fetch(client HTTPClient, url string, maxBytes int64) ([]byte, error) {
	if client == nil {
		client = NewStandardClient(nil)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultFetchLimit
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, maxBytes)
	}
	return data, nil
}
