package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

var ErrorURLNotFound = errors.New("URL not found")

func getResp(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", clientAgent)

	return client.Do(req) //nolint:gosec // G107: URLs come from the sources config
}

// Download saves the content of url into the file at path and returns the
// number of bytes written. A nil client uses GetHTTPClient.
func Download(ctx context.Context, client *http.Client, url, path string) (n int64, retErr error) {
	if url == "" || path == "" {
		return 0, errors.New("url and path are required")
	}

	if client == nil {
		c, err := GetHTTPClient()
		if err != nil {
			return 0, fmt.Errorf("error creating HTTP client: %w", err)
		}
		client = c
	}

	resp, err := getResp(ctx, client, url)
	if err != nil {
		return 0, fmt.Errorf("error executing HTTP Get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return 0, fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("error creating file: %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	n, err = io.Copy(out, resp.Body)
	if err != nil {
		return n, fmt.Errorf("error saving downloaded content to file: %w", err)
	}

	return n, nil
}
