// Command test_integration drives a running server through an upload and the
// read endpoints. Point BASE_URL at the server (default http://localhost:8080).
package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const uploadCSV = "Product ID,Compatible Product IDs\nsmoke-1,\"smoke-2,smoke-3\"\n"

var baseURL = "http://localhost:8080"

func main() {
	if v := os.Getenv("BASE_URL"); v != "" {
		baseURL = strings.TrimSuffix(v, "/")
	}
	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Println("Starting smoke test against", baseURL)

	steps := []struct {
		name   string
		method string
		path   string
		body   io.Reader
		ctype  string
		check  func(map[string]any) error
	}{
		{"health", http.MethodGet, "/healthz", nil, "", nil},
		{"upload", http.MethodPost, "/compatibility/upload", strings.NewReader(uploadCSV), "text/csv", func(body map[string]any) error {
			if body["status"] != "success" {
				return fmt.Errorf("upload status %v, errors %v", body["status"], body["errors"])
			}
			return nil
		}},
		{"show missing", http.MethodPatch, "/settings", jsonBody(map[string]any{"showMissingProducts": true}), "application/json", nil},
		{"query", http.MethodGet, "/compatibility/smoke-1", nil, "", func(body map[string]any) error {
			products, _ := body["products"].([]any)
			if len(products) != 2 {
				return fmt.Errorf("expected 2 compatible products, got %d", len(products))
			}
			return nil
		}},
		{"missing", http.MethodGet, "/missing", nil, "", nil},
		{"analytics", http.MethodGet, "/analytics", nil, "", nil},
	}

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		body, err := send(client, step.method, step.path, step.body, step.ctype)
		if err == nil && step.check != nil {
			err = step.check(body)
		}
		if err != nil {
			fmt.Printf("FAILED: %s: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", step.name)
	}
}

func jsonBody(v any) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

func send(client *http.Client, method, path string, body io.Reader, contentType string) (map[string]any, error) {
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}
