package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient is the Do-only subset of *http.Client the helpers need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrStopStream tells StreamRequest that the processor saw the upstream's
// terminal record. The body is closed and StreamRequest returns nil.
var ErrStopStream = errors.New("stop stream")

// SendRequest performs one JSON round trip: marshal body, send, check the
// status code, decode into response. Non-2xx statuses come back as an
// *UpstreamError carrying the raw body.
func SendRequest(ctx context.Context, client HTTPClient, method, url string, headers map[string]string, body, response any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
		}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// LineProcessor consumes one non-empty line of a streamed body. Returning
// ErrStopStream ends the stream cleanly; any other error aborts it.
type LineProcessor func(line string) error

// StreamRequest performs a request whose body arrives incrementally (SSE or
// NDJSON) and feeds each line to processLine in arrival order. Cancelling
// ctx aborts the underlying call and releases the connection.
func StreamRequest(ctx context.Context, client HTTPClient, method, url string, headers map[string]string, body any, processLine LineProcessor) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	// a single reasoning delta can exceed the default 64K token limit
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if err := processLine(line); err != nil {
			if errors.Is(err, ErrStopStream) {
				return nil
			}
			return err
		}
	}

	return scanner.Err()
}
