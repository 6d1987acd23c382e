// client.go
// ---------
// The client.go file contains the core Client struct and the typed API
// catalog. This is the main entry point of the library for users.
//
// Key functionalities include:
// - Constructing a client with NewClient()
// - Calling the typed endpoint catalog (models, agents, files, uploads, ...)
// - Managing per-endpoint response caching and explicit invalidation
// - Observing rate limit state via GetRateLimitInfo()/AddRateLimitListener()
//
// The Client relies on a RateLimiter and a RequestExecutor so every call
// shares one single-flight queue, one retry policy, and one quota record.
package workbenchbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sync"
)

// Cache keys for the pure-read endpoints.
const (
	cacheKeyModels    = "models"
	cacheKeyAgents    = "agents"
	cacheKeyAnalyzers = "security-analyzers"
	cacheKeyConfig    = "config"

	rootListingKey = "files:root"
)

func listingKey(dirPath string) string {
	if dirPath == "" {
		return rootListingKey
	}
	return "files:" + dirPath
}

func fileKey(filePath string) string {
	return "file:" + filePath
}

// parentListingKey maps a file path to the cache key of the directory
// listing that contains it. Top-level files map to the root listing.
func parentListingKey(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" || dir == "" {
		return rootListingKey
	}
	return "files:" + dir
}

// Client is the typed API surface over the request layer.
type Client struct {
	mu     sync.Mutex
	config ClientConfig

	limiter  *RateLimiter
	executor *RequestExecutor

	Debug bool // If true, print debug info
}

func NewClient(config ClientConfig) *Client {
	config.applyDefaults()
	c := &Client{
		config:  config,
		limiter: NewRateLimiter(config.BaseBackoff),
	}
	c.executor = NewRequestExecutor(c)
	return c
}

// SetDebug enables or disables debug logging for the client.
func (c *Client) SetDebug(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Debug = enabled
}

// debugf prints debug messages if Debug mode is enabled.
func (c *Client) debugf(format string, args ...interface{}) {
	if c.Debug {
		fmt.Printf("[DEBUG] "+format, args...)
	}
}

// GetRateLimitInfo returns the current locally known quota snapshot without
// touching the network.
func (c *Client) GetRateLimitInfo() RateLimitInfo {
	return c.limiter.GetRateLimitInfo()
}

// AddRateLimitListener registers a display-only observer of quota updates.
func (c *Client) AddRateLimitListener(l RateLimitListener) {
	c.limiter.AddListener(l)
}

// getJSONCached serves a pure-read endpoint: cache hit wins, otherwise the
// call goes through the executor and the raw body is memoized under key.
// There is no TTL; entries live until a mutation invalidates them.
func (c *Client) getJSONCached(key string, req *Request, out interface{}) error {
	if c.config.Cache != nil {
		if data, ok := c.config.Cache.Get(key); ok {
			c.debugf("cache hit for %q\n", key)
			if err := json.Unmarshal(data, out); err == nil {
				return nil
			}
			// A corrupt entry is dropped and refetched.
			c.config.Cache.Delete(key)
		}
	}

	resp, err := c.executor.Execute(req)
	if err != nil {
		return err
	}
	if err := c.executor.decode(req, resp, out); err != nil {
		return err
	}
	if c.config.Cache != nil {
		c.config.Cache.Set(key, resp.Data)
	}
	return nil
}

func (c *Client) invalidate(keys ...string) {
	if c.config.Cache == nil {
		return
	}
	for _, key := range keys {
		c.debugf("invalidating cache key %q\n", key)
		c.config.Cache.Delete(key)
	}
}

// GetModels lists the models the server supports.
func (c *Client) GetModels() ([]string, error) {
	var models []string
	req := &Request{Method: http.MethodGet, Endpoint: "/api/options/models"}
	if err := c.getJSONCached(cacheKeyModels, req, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// GetAgents lists the agents the server supports.
func (c *Client) GetAgents() ([]string, error) {
	var agents []string
	req := &Request{Method: http.MethodGet, Endpoint: "/api/options/agents"}
	if err := c.getJSONCached(cacheKeyAgents, req, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetSecurityAnalyzers lists the available security analyzers.
func (c *Client) GetSecurityAnalyzers() ([]string, error) {
	var analyzers []string
	req := &Request{Method: http.MethodGet, Endpoint: "/api/options/security-analyzers"}
	if err := c.getJSONCached(cacheKeyAnalyzers, req, &analyzers); err != nil {
		return nil, err
	}
	return analyzers, nil
}

// GetConfig fetches the static server configuration document.
func (c *Client) GetConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	req := &Request{Method: http.MethodGet, Endpoint: "/config.json"}
	if err := c.getJSONCached(cacheKeyConfig, req, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetFiles lists workspace entries under dirPath; "" means the root.
func (c *Client) GetFiles(dirPath string) ([]string, error) {
	endpoint := "/api/list-files"
	if dirPath != "" {
		endpoint += "?path=" + url.QueryEscape(dirPath)
	}
	var files []string
	req := &Request{Method: http.MethodGet, Endpoint: endpoint}
	if err := c.getJSONCached(listingKey(dirPath), req, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetFile fetches the content of one workspace file.
func (c *Client) GetFile(filePath string) (string, error) {
	endpoint := "/api/select-file?file=" + url.QueryEscape(filePath)
	var content fileContent
	req := &Request{Method: http.MethodGet, Endpoint: endpoint}
	if err := c.getJSONCached(fileKey(filePath), req, &content); err != nil {
		return "", err
	}
	return content.Code, nil
}

// SaveFile writes content to a workspace file and invalidates every cache
// entry the write can stale: the file itself, the root listing, and the
// listing of the file's directory.
func (c *Client) SaveFile(filePath, content string) error {
	body, err := json.Marshal(saveFileRequest{FilePath: filePath, Content: content})
	if err != nil {
		return err
	}
	req := &Request{Method: http.MethodPost, Endpoint: "/api/save-file", Body: body}
	if _, err := c.executor.Execute(req); err != nil {
		return err
	}
	c.invalidate(fileKey(filePath), rootListingKey, parentListingKey(filePath))
	return nil
}

// UploadFiles submits files as multipart form data and invalidates the root
// listing plus the listing of each uploaded file's directory.
func (c *Client) UploadFiles(files []UploadFile) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.uploadName())
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := &Request{
		Method:      http.MethodPost,
		Endpoint:    "/api/upload-files",
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
	}
	var result UploadResult
	if err := c.executor.ExecuteJSON(req, &result); err != nil {
		return nil, err
	}

	keys := []string{rootListingKey}
	for _, f := range files {
		if key := parentListingKey(f.uploadName()); key != rootListingKey {
			keys = append(keys, key)
		}
	}
	c.invalidate(keys...)
	return &result, nil
}

// GetWorkspaceZip downloads the workspace archive. The payload is returned
// raw and never cached.
func (c *Client) GetWorkspaceZip() ([]byte, error) {
	req := &Request{Method: http.MethodGet, Endpoint: "/api/zip-directory"}
	resp, err := c.executor.Execute(req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SendFeedback submits user feedback. Fire-and-forget: no caching.
func (c *Client) SendFeedback(feedback *Feedback) (*FeedbackResponse, error) {
	body, err := json.Marshal(feedback)
	if err != nil {
		return nil, err
	}
	req := &Request{Method: http.MethodPost, Endpoint: "/api/submit-feedback", Body: body}
	var result FeedbackResponse
	if err := c.executor.ExecuteJSON(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExchangeGitHubCode trades an OAuth authorization code for an access token.
// The callback route is on the unauthenticated allow-list.
func (c *Client) ExchangeGitHubCode(code string) (string, error) {
	body, err := json.Marshal(githubCallbackRequest{Code: code})
	if err != nil {
		return "", err
	}
	req := &Request{Method: http.MethodPost, Endpoint: "/api/github/callback", Body: body}
	var result githubCallbackResponse
	if err := c.executor.ExecuteJSON(req, &result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// Authenticate validates the current session with the server. Failures are
// returned but never toasted; this is a background check.
func (c *Client) Authenticate() error {
	req := &Request{Method: http.MethodPost, Endpoint: "/api/authenticate", Silent: true}
	_, err := c.executor.Execute(req)
	return err
}

// GetRateLimitStatus asks the server for current quota (the response headers
// refresh the limiter) and returns the latest snapshot. A failed check is
// swallowed: the last known snapshot is still returned.
func (c *Client) GetRateLimitStatus() RateLimitInfo {
	req := &Request{Method: http.MethodGet, Endpoint: "/api/rate-limit", Silent: true}
	if _, err := c.executor.Execute(req); err != nil {
		c.debugf("rate limit status check failed: %v\n", err)
	}
	return c.limiter.GetRateLimitInfo()
}
