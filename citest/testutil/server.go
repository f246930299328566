package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/server"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

// TestServer wraps a fully wired API server listening on a local port.
type TestServer struct {
	BaseURL string

	http    *httptest.Server
	dataDir string
}

// StartTestServer starts a server with the given completion backend. An
// empty secret runs the API in development auth mode.
func StartTestServer(p provider.Provider, secret string) (*TestServer, error) {
	dataDir, err := os.MkdirTemp("", "parley-citest-*")
	if err != nil {
		return nil, err
	}

	appConfig := &types.Config{
		Model: "scripted/test-model",
		Auth:  types.AuthConfig{Secret: secret},
	}
	registry := provider.NewRegistry(appConfig)
	if p != nil {
		registry.Register(p)
	}

	srv := server.New(server.DefaultConfig(), appConfig, storage.New(dataDir), registry)
	httpSrv := httptest.NewServer(srv.Router())

	return &TestServer{
		BaseURL: httpSrv.URL,
		http:    httpSrv,
		dataDir: dataDir,
	}, nil
}

// Close shuts the server down and removes its data directory.
func (ts *TestServer) Close() {
	ts.http.Close()
	os.RemoveAll(ts.dataDir)
}

// Client returns an API client for this server.
func (ts *TestServer) Client() *TestClient {
	return &TestClient{baseURL: ts.BaseURL, http: ts.http.Client()}
}

// TestClient is a thin API client for tests.
type TestClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// SetToken sets the bearer token used for subsequent requests.
func (c *TestClient) SetToken(token string) {
	c.token = token
}

func (c *TestClient) do(method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func (c *TestClient) doJSON(method, path string, body, out any) (int, error) {
	resp, err := c.do(method, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// LoginResult holds the outcome of a login call.
type LoginResult struct {
	User  *types.User `json:"user"`
	Token string      `json:"token"`
}

// Login calls POST /login and adopts the returned token, if any.
func (c *TestClient) Login(email, firstName, lastName string) (*LoginResult, int, error) {
	var result LoginResult
	status, err := c.doJSON("POST", "/login", map[string]string{
		"email":     email,
		"firstName": firstName,
		"lastName":  lastName,
	}, &result)
	if err != nil {
		return nil, status, err
	}
	if result.Token != "" {
		c.token = result.Token
	}
	return &result, status, nil
}

// CreateSession calls POST /session.
func (c *TestClient) CreateSession(title, intent string) (*types.Session, int, error) {
	var session types.Session
	status, err := c.doJSON("POST", "/session", map[string]string{
		"title":  title,
		"intent": intent,
	}, &session)
	return &session, status, err
}

// GetSession calls GET /session/{id}.
func (c *TestClient) GetSession(id string) (*types.Session, int, error) {
	var session types.Session
	status, err := c.doJSON("GET", "/session/"+id, nil, &session)
	return &session, status, err
}

// ListSessions calls GET /session.
func (c *TestClient) ListSessions() ([]*types.Session, int, error) {
	var sessions []*types.Session
	status, err := c.doJSON("GET", "/session", nil, &sessions)
	return sessions, status, err
}

// DeleteSession calls DELETE /session/{id}.
func (c *TestClient) DeleteSession(id string) (int, error) {
	return c.doJSON("DELETE", "/session/"+id, nil, nil)
}

// RunTurn calls POST /session/{id}/turn and collects the streamed
// fragments until the response closes.
func (c *TestClient) RunTurn(id, query string) ([]string, int, error) {
	resp, err := c.do("POST", "/session/"+id+"/turn", map[string]string{"query": query})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return nil, resp.StatusCode, fmt.Errorf("unexpected content type %q", ct)
	}

	var fragments []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		payload, found := strings.CutPrefix(scanner.Text(), "data: ")
		if !found {
			continue
		}
		var fragment string
		if err := json.Unmarshal([]byte(payload), &fragment); err != nil {
			return nil, resp.StatusCode, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, resp.StatusCode, scanner.Err()
}
