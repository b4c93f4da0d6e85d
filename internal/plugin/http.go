package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxResponseBytes caps the response body read by SendHTTPRequest.
const maxResponseBytes = 1 << 20

// Result is the outcome of SendHTTPRequest. It never carries a Go error:
// failures are described in Error.
type Result struct {
	Success  bool
	Error    string
	Response any
}

// httpBody is the request body expected by the home-automation endpoint,
// which requires both fields.
type httpBody struct {
	Path  string `json:"path,omitempty"`
	Value string `json:"value,omitempty"`
}

// SendHTTPRequest POSTs {"path": path, "value": path} as JSON to url.
//
// A non-2xx answer yields Error "HTTP <code>: <status>[ - <body>]". A 2xx
// answer yields the decoded JSON body, or an empty object when the body is
// not JSON.
func (r *Runtime) SendHTTPRequest(ctx context.Context, url, path string) Result {
	return SendHTTPRequest(ctx, r.http, url, path)
}

// SendHTTPRequest is the client-level form of Runtime.SendHTTPRequest.
func SendHTTPRequest(ctx context.Context, client *http.Client, url, path string) Result {
	body, err := json.Marshal(httpBody{Path: path, Value: path})
	if err != nil {
		return Result{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // Body fully consumed below

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, status)
		if text := strings.TrimSpace(string(data)); readErr == nil && text != "" {
			msg += " - " + text
		}
		return Result{Error: msg}
	}

	var decoded any
	if readErr != nil || json.Unmarshal(data, &decoded) != nil {
		decoded = map[string]any{}
	}
	return Result{Success: true, Response: decoded}
}
