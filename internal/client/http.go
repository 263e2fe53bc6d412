package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

const (
	apiBase        = "/ghost/api/v0.1"
	requestTimeout = 30 * time.Second
)

// HTTPClient implements Client against the blog's admin API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu          sync.Mutex
	accessToken string
}

var _ Client = (*HTTPClient)(nil)

// New validates the blog address and returns a client for it. A
// malformed address is a user-input error, not a connectivity one.
func New(blogURL string, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSuffix(blogURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &APIError{Kind: KindUserInput, Message: fmt.Sprintf("invalid blog address %q", blogURL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &APIError{Kind: KindUserInput, Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HTTPClient{
		baseURL: u.String(),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}, nil
}

// SetSession installs the access token used for subsequent requests.
func (c *HTTPClient) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.accessToken = ""
		return
	}
	c.accessToken = s.AccessToken
}

func (c *HTTPClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// Login performs the password grant against the authentication endpoint.
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*Session, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {creds.Email},
		"password":   {creds.Password},
		"client_id":  {"ghost-admin"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiBase+"/authentication/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &APIError{Kind: KindInternal, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := c.doCond(req, "")
	if err != nil {
		return nil, err
	}
	var wire struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &APIError{Kind: KindInternal, Message: "malformed token response: " + err.Error()}
	}
	s := &Session{AccessToken: wire.AccessToken, RefreshToken: wire.RefreshToken}
	c.SetSession(s)
	return s, nil
}

// RefreshSession exchanges a refresh token for a fresh access token.
func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {"ghost-admin"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiBase+"/authentication/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &APIError{Kind: KindInternal, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := c.doCond(req, "")
	if err != nil {
		return nil, err
	}
	var wire struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &APIError{Kind: KindInternal, Message: "malformed token response: " + err.Error()}
	}
	s := &Session{AccessToken: wire.AccessToken, RefreshToken: refreshToken}
	c.SetSession(s)
	return s, nil
}

// Logout drops the session locally. The token-based API holds no
// server-side session to revoke.
func (c *HTTPClient) Logout(ctx context.Context) error {
	c.SetSession(nil)
	return nil
}

func (c *HTTPClient) FetchPosts(ctx context.Context, token string) (FetchResult[[]models.Post], error) {
	var out FetchResult[[]models.Post]
	body, res, err := c.get(ctx, "/posts/?status=all&staticPages=false&include=tags&limit=all", token)
	if err != nil || res.notModified {
		return intoResult(res, out.Value), err
	}
	var wire struct {
		Posts []wirePost `json:"posts"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return out, &APIError{Kind: KindInternal, Message: "malformed posts response: " + err.Error()}
	}
	posts := make([]models.Post, 0, len(wire.Posts))
	for _, wp := range wire.Posts {
		posts = append(posts, wp.toModel(ctx, c.log))
	}
	return intoResult(res, posts), nil
}

func (c *HTTPClient) FetchCurrentUser(ctx context.Context, token string) (FetchResult[models.User], error) {
	var out FetchResult[models.User]
	body, res, err := c.get(ctx, "/users/me/?include=roles", token)
	if err != nil || res.notModified {
		return intoResult(res, out.Value), err
	}
	var wire struct {
		Users []wireUser `json:"users"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return out, &APIError{Kind: KindInternal, Message: "malformed user response: " + err.Error()}
	}
	if len(wire.Users) == 0 {
		return out, &APIError{Kind: KindInternal, Message: "user response holds no user"}
	}
	return intoResult(res, wire.Users[0].toModel()), nil
}

func (c *HTTPClient) FetchSettings(ctx context.Context, token string) (FetchResult[[]models.Setting], error) {
	var out FetchResult[[]models.Setting]
	body, res, err := c.get(ctx, "/settings/?type=blog", token)
	if err != nil || res.notModified {
		return intoResult(res, out.Value), err
	}
	var wire struct {
		Settings []struct {
			ID    string `json:"id"`
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return out, &APIError{Kind: KindInternal, Message: "malformed settings response: " + err.Error()}
	}
	settings := make([]models.Setting, 0, len(wire.Settings))
	for _, s := range wire.Settings {
		// a non-numeric id keeps the zero value; the key is the identity
		// that matters locally
		id, err := strconv.Atoi(s.ID)
		if err != nil {
			c.log.Warn(ctx, "non-numeric setting id", "id", s.ID, "key", s.Key)
		}
		settings = append(settings, models.Setting{ID: id, Key: s.Key, Value: s.Value})
	}
	return intoResult(res, settings), nil
}

func (c *HTTPClient) FetchConfiguration(ctx context.Context, token string) (FetchResult[[]models.ConfigurationParam], error) {
	var out FetchResult[[]models.ConfigurationParam]
	body, res, err := c.get(ctx, "/configuration/", token)
	if err != nil || res.notModified {
		return intoResult(res, out.Value), err
	}
	params, err := FlattenConfiguration(body)
	if err != nil {
		return out, &APIError{Kind: KindInternal, Message: "malformed configuration response: " + err.Error()}
	}
	return intoResult(res, params), nil
}

func (c *HTTPClient) FetchVersion(ctx context.Context, token string) (FetchResult[string], error) {
	var out FetchResult[string]
	body, res, err := c.get(ctx, "/configuration/about/", token)
	if err != nil || res.notModified {
		return intoResult(res, out.Value), err
	}
	params, err := FlattenConfiguration(body)
	if err != nil {
		return out, &APIError{Kind: KindInternal, Message: "malformed about response: " + err.Error()}
	}
	for _, p := range params {
		if p.Key == "version" {
			return intoResult(res, p.Value), nil
		}
	}
	return out, &APIError{Kind: KindInternal, Message: "about response holds no version"}
}

func (c *HTTPClient) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	return c.writePost(ctx, http.MethodPost, "/posts/?include=tags", p)
}

func (c *HTTPClient) UpdatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	return c.writePost(ctx, http.MethodPut, "/posts/"+url.PathEscape(p.ID)+"/?include=tags", p)
}

func (c *HTTPClient) DeletePost(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+apiBase+"/posts/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		return &APIError{Kind: KindInternal, Message: err.Error()}
	}
	_, _, err = c.doCond(req, "")
	return err
}

// UploadFile posts the file as multipart form data and returns the URL the
// server stored it under.
func (c *HTTPClient) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("uploadimage", filename)
	if err != nil {
		return "", &APIError{Kind: KindInternal, Message: err.Error()}
	}
	if _, err := part.Write(data); err != nil {
		return "", &APIError{Kind: KindInternal, Message: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return "", &APIError{Kind: KindInternal, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiBase+"/uploads/", &buf)
	if err != nil {
		return "", &APIError{Kind: KindInternal, Message: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, _, err := c.doCond(req, "")
	if err != nil {
		return "", err
	}
	// the endpoint answers with a JSON-quoted URL string
	var uploaded string
	if err := json.Unmarshal(body, &uploaded); err != nil {
		uploaded = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}
	return uploaded, nil
}

func (c *HTTPClient) writePost(ctx context.Context, method, path string, p *models.Post) (*models.Post, error) {
	payload, err := json.Marshal(map[string]any{"posts": []wirePost{fromModel(p)}})
	if err != nil {
		return nil, &APIError{Kind: KindInternal, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiBase+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Kind: KindInternal, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	body, _, err := c.doCond(req, "")
	if err != nil {
		return nil, err
	}
	var wire struct {
		Posts []wirePost `json:"posts"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &APIError{Kind: KindInternal, Message: "malformed post response: " + err.Error()}
	}
	if len(wire.Posts) == 0 {
		return nil, &APIError{Kind: KindInternal, Message: "post response holds no post"}
	}
	saved := wire.Posts[0].toModel(ctx, c.log)
	return &saved, nil
}

func (c *HTTPClient) get(ctx context.Context, path, token string) ([]byte, fetchMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiBase+path, nil)
	if err != nil {
		return nil, fetchMeta{}, &APIError{Kind: KindInternal, Message: err.Error()}
	}
	body, meta, err := c.doCond(req, token)
	return body, meta, err
}

type fetchMeta struct {
	token       string
	notModified bool
}

func intoResult[T any](meta fetchMeta, v T) FetchResult[T] {
	return FetchResult[T]{Value: v, Token: meta.token, NotModified: meta.notModified}
}

func (c *HTTPClient) doCond(req *http.Request, ifNoneMatch string) ([]byte, fetchMeta, error) {
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fetchMeta{}, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, fetchMeta{token: ifNoneMatch, notModified: true}, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fetchMeta{}, &APIError{Kind: KindConnectivity, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fetchMeta{}, statusError(resp.StatusCode, errorMessage(body))
	}
	return body, fetchMeta{token: resp.Header.Get("ETag")}, nil
}

// errorMessage digs the human message out of the server's error envelope.
func errorMessage(body []byte) string {
	var wire struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && len(wire.Errors) > 0 {
		return wire.Errors[0].Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
