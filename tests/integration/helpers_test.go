// Package integration exercises a running catalog service over HTTP.
// Tests skip when the service is not reachable.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// baseURL is the catalog service under test, CATALOG_URL or the local default.
func baseURL() string {
	if u := os.Getenv("CATALOG_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8001"
}

// uniqueName avoids collisions between runs against the same database.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("catalog service at %s not reachable: %v", baseURL(), err)
	}
	resp.Body.Close()
}

type gqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

// graphql posts a query and decodes the response. secret, when set, is
// sent as a bearer credential.
func graphql(t *testing.T, query string, variables map[string]any, secret string) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL()+"/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equalf(t, http.StatusOK, resp.StatusCode, "body: %s", raw)

	var out gqlResponse
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

// mustData fails the test on any GraphQL error.
func mustData(t *testing.T, resp gqlResponse) map[string]any {
	t.Helper()
	require.Emptyf(t, resp.Errors, "unexpected errors: %+v", resp.Errors)
	return resp.Data
}

// extractField navigates a nested map using a dot-separated path.
func extractField(data map[string]any, path string) any {
	var current any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}
