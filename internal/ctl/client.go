package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	httpClient = &http.Client{Timeout: 5 * time.Second}

	// searchClient serves the endpoints that run pass or eclipse searches
	// and may need a network TLE fetch first.
	searchClient = &http.Client{Timeout: 2 * time.Minute}
)

// APIError is a non-2xx reply from skyd. Kind is the engine failure kind
// when the daemon reported one.
type APIError struct {
	Status int
	Kind   string
	Msg    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Kind, e.Msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Msg)
}

// responseError builds an APIError from a failed response, preferring the
// daemon's {"kind", "error"} body over the raw text.
func responseError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &APIError{Status: resp.StatusCode}

	var body struct {
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		e.Kind, e.Msg = body.Kind, body.Error
		return e
	}
	e.Msg = strings.TrimSpace(string(b))
	if e.Msg == "" {
		e.Msg = http.StatusText(resp.StatusCode)
	}
	return e
}

// maxRetries bounds how often a rate-limited request is resent, and
// maxRetryWait caps a single Retry-After wait.
const (
	maxRetries   = 5
	maxRetryWait = 30 * time.Second
)

func do(client *http.Client, method, url string, body, dst any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequest(method, url, reqBody)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			time.Sleep(wait)
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return responseError(resp)
		}
		if dst == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(dst)
	}
}

// retryAfter reads a Retry-After value in seconds. A missing or
// unparsable header waits one second.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return time.Second
	}
	return min(time.Duration(secs)*time.Second, maxRetryWait)
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// getJSON sends a GET request and decodes the JSON response into dst.
func getJSON(baseURL, path string, dst any) error {
	return do(httpClient, http.MethodGet, endpoint(baseURL, path), nil, dst)
}

// getRaw sends a GET request and returns the status and raw body without
// treating non-2xx replies as errors.
func getRaw(baseURL, path string, accept string) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint(baseURL, path), nil)
	if err != nil {
		return 0, nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// postJSON sends a POST request with a JSON body and decodes the response.
func postJSON(baseURL, path string, body, dst any) error {
	return do(httpClient, http.MethodPost, endpoint(baseURL, path), body, dst)
}

// search is postJSON with the long-running client.
func search(baseURL, path string, body, dst any) error {
	return do(searchClient, http.MethodPost, endpoint(baseURL, path), body, dst)
}

// printJSON prints v as indented JSON to stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
