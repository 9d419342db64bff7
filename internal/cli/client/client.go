package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Client represents an HTTP client for the Reelfolio API
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL is the server the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// StatusOf reports the HTTP status of an APIError, 0 for anything else
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(respBody, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup creates an unverified account
func (c *Client) Signup(ctx context.Context, email, password, name string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signup", SignupRequest{Email: email, Password: password, Name: name}, nil)
}

// Verify confirms an email address
func (c *Client) Verify(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"token": token}, nil)
}

// Logout revokes the current token on the server
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Refresh exchanges the current token for a fresh one
func (c *Client) Refresh(ctx context.Context) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the current token belongs to
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// HasRole asks whether the caller holds role
func (c *Client) HasRole(ctx context.Context, role string) (bool, error) {
	var resp struct {
		HasRole bool `json:"has_role"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/roles/"+url.PathEscape(role), nil, &resp); err != nil {
		return false, err
	}
	return resp.HasRole, nil
}

// ProjectFilter narrows the project listing
type ProjectFilter struct {
	Category string
	Featured bool
	MyList   bool
}

// ListProjects returns projects, newest first
func (c *Client) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Featured {
		q.Set("featured", "true")
	}
	if filter.MyList {
		q.Set("my_list", "true")
	}
	path := "/api/projects"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var projects []Project
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns one project
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// SearchProjects runs the quick search
func (c *Client) SearchProjects(ctx context.Context, query string) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/search?q="+url.QueryEscape(query), nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListCategories returns categories in display order
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListBanners returns hero banners in display order
func (c *Client) ListBanners(ctx context.Context, activeOnly bool) ([]Banner, error) {
	path := "/api/banners"
	if activeOnly {
		path += "?active=true"
	}
	var banners []Banner
	if err := c.do(ctx, http.MethodGet, path, nil, &banners); err != nil {
		return nil, err
	}
	return banners, nil
}

// GetAbout returns the about profile
func (c *Client) GetAbout(ctx context.Context) (*About, error) {
	var about About
	if err := c.do(ctx, http.MethodGet, "/api/about", nil, &about); err != nil {
		return nil, err
	}
	return &about, nil
}

// Stats returns dashboard counters
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateProject adds a project
func (c *Client) CreateProject(ctx context.Context, input ProjectInput) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodPost, "/api/admin/projects", input, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject replaces every editable field of a project
func (c *Client) UpdateProject(ctx context.Context, id string, input ProjectInput) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodPut, "/api/admin/projects/"+url.PathEscape(id), input, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/projects/"+url.PathEscape(id), nil, nil)
}

// CreateCategory adds a category
func (c *Client) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPost, "/api/admin/categories", input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory replaces every editable field of a category
func (c *Client) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPut, "/api/admin/categories/"+url.PathEscape(id), input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes a category, detaching its projects
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/categories/"+url.PathEscape(id), nil, nil)
}

// CreateBanner adds a banner
func (c *Client) CreateBanner(ctx context.Context, input BannerInput) (*Banner, error) {
	var banner Banner
	if err := c.do(ctx, http.MethodPost, "/api/admin/banners", input, &banner); err != nil {
		return nil, err
	}
	return &banner, nil
}

// UpdateBanner replaces every editable field of a banner
func (c *Client) UpdateBanner(ctx context.Context, id string, input BannerInput) (*Banner, error) {
	var banner Banner
	if err := c.do(ctx, http.MethodPut, "/api/admin/banners/"+url.PathEscape(id), input, &banner); err != nil {
		return nil, err
	}
	return &banner, nil
}

// UpsertAbout creates or replaces the about profile
func (c *Client) UpsertAbout(ctx context.Context, about About) (*About, error) {
	var saved About
	if err := c.do(ctx, http.MethodPut, "/api/admin/about", about, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteBanner removes a banner
func (c *Client) DeleteBanner(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/banners/"+url.PathEscape(id), nil, nil)
}

// GrantAdmin promotes an account to admin
func (c *Client) GrantAdmin(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/roles", map[string]string{"email": email}, nil)
}

// Upload sends a local file to a storage bucket and returns its public URL
func (c *Client) Upload(ctx context.Context, bucket, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/uploads/"+url.PathEscape(bucket), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
