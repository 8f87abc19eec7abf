package opensubtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"subwatch/internal/media"
)

const (
	defaultBaseURL     = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent   = "subwatch v1"
	defaultHTTPTimeout = 45 * time.Second
	maxErrorBody       = 4096
)

// Config describes the OpenSubtitles client configuration.
type Config struct {
	APIKey     string
	UserAgent  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps the OpenSubtitles REST API.
type Client struct {
	apiKey    string
	userAgent string
	baseURL   *url.URL
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("opensubtitles: api key is required")
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		baseURL:   baseURL,
		http:      client,
	}, nil
}

// Session is an authenticated login. The zero value is "not logged in".
type Session struct {
	Token   string
	BaseURL string
	User    string
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// SearchRequest describes subtitle discovery filters.
type SearchRequest struct {
	MovieHash string
	Query     string
	Languages []string
}

// Subtitle represents a subtitle candidate returned by OpenSubtitles.
type Subtitle struct {
	ID        string
	FileID    int64
	FileName  string
	Format    string
	Language  string
	Release   string
	Downloads int
}

// SearchResponse bundles the subtitles returned by a query, in service order.
type SearchResponse struct {
	Subtitles []Subtitle
	Total     int
}

// DownloadOptions configures a download request.
type DownloadOptions struct {
	// Format is the sub_format the service converts the subtitle to;
	// defaults to srt.
	Format string
}

// Blob is one named payload returned by a download.
type Blob struct {
	Name string
	Data []byte
}

// RequestForFile builds a search for the video at mediaPath. The movie hash is
// used when it can be computed; otherwise the file's base name is the query.
func RequestForFile(mediaPath string, languages ...string) SearchRequest {
	req := SearchRequest{Languages: languages}
	if hash, _, err := MovieHash(mediaPath); err == nil {
		req.MovieHash = hash
		return req
	}
	base := filepath.Base(mediaPath)
	req.Query = strings.TrimSuffix(base, filepath.Ext(base))
	return req
}

// Login authenticates and returns a Session for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	if c == nil {
		return Session{}, errors.New("opensubtitles: client is nil")
	}
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return Session{}, fmt.Errorf("opensubtitles: encode login request: %w", err)
	}

	var resp loginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, c.baseURL.JoinPath("login"), Session{}, payload, &resp); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return Session{}, ErrNoToken
	}
	return Session{
		Token:   resp.Token,
		BaseURL: strings.TrimSpace(resp.BaseURL),
		User:    resp.User.Username,
	}, nil
}

// Logout destroys the session on the server. A zero session is a no-op.
func (c *Client) Logout(ctx context.Context, session Session) error {
	if c == nil || !session.Valid() {
		return nil
	}
	endpoint := c.sessionBase(session).JoinPath("logout")
	return c.doJSON(ctx, "logout", http.MethodDelete, endpoint, session, nil, nil)
}

// Search queries the OpenSubtitles API for matching subtitles.
func (c *Client) Search(ctx context.Context, session Session, req SearchRequest) (SearchResponse, error) {
	if c == nil {
		return SearchResponse{}, errors.New("opensubtitles: client is nil")
	}
	if !session.Valid() {
		return SearchResponse{}, ErrNoSession
	}
	endpoint := c.sessionBase(session).JoinPath("subtitles")
	params := url.Values{}
	if hash := strings.TrimSpace(req.MovieHash); hash != "" {
		params.Set("moviehash", hash)
	}
	if query := strings.TrimSpace(req.Query); query != "" {
		params.Set("query", query)
	}
	if len(req.Languages) > 0 {
		params.Set("languages", strings.Join(req.Languages, ","))
	}
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.doJSON(ctx, "search", http.MethodGet, endpoint, session, nil, &payload); err != nil {
		return SearchResponse{}, err
	}

	subtitles := make([]Subtitle, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if len(entry.Attributes.Files) == 0 || entry.Attributes.Files[0].FileID == 0 {
			continue
		}
		file := entry.Attributes.Files[0]
		subtitles = append(subtitles, Subtitle{
			ID:        entry.ID,
			FileID:    file.FileID,
			FileName:  file.FileName,
			Format:    formatFromName(file.FileName),
			Language:  entry.Attributes.Language,
			Release:   entry.Attributes.Release,
			Downloads: entry.Attributes.DownloadCount,
		})
	}

	return SearchResponse{
		Subtitles: subtitles,
		Total:     payload.Meta.Total,
	}, nil
}

// Download retrieves the subtitle contents for the specified subtitle file.
func (c *Client) Download(ctx context.Context, session Session, fileID int64, opts DownloadOptions) ([]Blob, error) {
	if c == nil {
		return nil, errors.New("opensubtitles: client is nil")
	}
	if !session.Valid() {
		return nil, ErrNoSession
	}
	if fileID <= 0 {
		return nil, errors.New("opensubtitles: invalid file id")
	}
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "srt"
	}
	payload, err := json.Marshal(map[string]any{
		"file_id":    fileID,
		"sub_format": format,
	})
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: encode download request: %w", err)
	}

	endpoint := c.sessionBase(session).JoinPath("download")
	var info downloadResponse
	if err := c.doJSON(ctx, "download", http.MethodPost, endpoint, session, payload, &info); err != nil {
		return nil, err
	}
	if info.Link == "" {
		return nil, errors.New("opensubtitles: download response missing link")
	}

	downloadURL, err := endpoint.Parse(info.Link)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse download url: %w", err)
	}

	dataReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: build link request: %w", err)
	}
	dataReq.Header.Set("User-Agent", c.userAgent)
	dataResp, err := c.http.Do(dataReq)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: fetch subtitle payload: %w", err)
	}
	defer dataResp.Body.Close()

	if dataResp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(dataResp.Body, maxErrorBody))
		return nil, &APIError{Op: "subtitle fetch", Status: dataResp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(dataResp.Body)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: read subtitle data: %w", err)
	}

	name := strings.TrimSpace(info.FileName)
	if name == "" {
		name = path.Base(downloadURL.Path)
	}
	return []Blob{{Name: name, Data: data}}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method string, endpoint *url.URL, session Session, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("opensubtitles: build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req, session)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("opensubtitles: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(raw))
		var payload errorPayload
		if json.Unmarshal(raw, &payload) == nil && payload.text() != "" {
			message = payload.text()
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("opensubtitles: decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request, session Session) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if session.Valid() {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
}

// sessionBase returns the API root for calls made with session. Login may
// direct a user to a dedicated host, given either as a bare host name or a
// full URL.
func (c *Client) sessionBase(session Session) *url.URL {
	base := *c.baseURL
	host := strings.TrimSpace(session.BaseURL)
	if host == "" {
		return &base
	}
	if strings.Contains(host, "://") {
		parsed, err := url.Parse(host)
		if err != nil || parsed.Host == "" {
			return &base
		}
		if parsed.Path == "" || parsed.Path == "/" {
			parsed.Path = base.Path
		}
		return parsed
	}
	base.Host = host
	return &base
}

// formatFromName returns the subtitle extension of name, or "" when the name
// carries none. Release names such as "Movie.2012.DVDRip.XviD-SPARKS" yield "".
func formatFromName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	if !media.IsSubtitleFormat(ext) {
		return ""
	}
	return ext
}

type loginResponse struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
	User    struct {
		Username string `json:"username"`
	} `json:"user"`
}

type searchResponse struct {
	Data []struct {
		ID         string           `json:"id"`
		Attributes searchAttributes `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Total int `json:"total_count"`
	} `json:"meta"`
}

type searchAttributes struct {
	Language      string       `json:"language"`
	Release       string       `json:"release"`
	DownloadCount int          `json:"download_count"`
	Files         []searchFile `json:"files"`
}

type searchFile struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
}

type downloadResponse struct {
	Link     string `json:"link"`
	FileName string `json:"file_name"`
}
