package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadAddresses(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://blog.example", "blog.example"} {
		_, err := New(raw, nil)
		require.Error(t, err, raw)
		assert.Equal(t, KindUserInput, KindOf(err), raw)
	}

	c, err := New("https://blog.example/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example", c.baseURL, "trailing slash is trimmed")
}

func TestFetchPosts_ConditionalRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, apiBase+"/posts/", r.URL.Path)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"posts":[{"id":"p1","slug":"hello","title":"Hello","markdown":"# hi",
			"status":"published","updated_at":"2024-05-01T10:00:00Z"}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.FetchPosts(ctx, "")
	require.NoError(t, err)
	assert.False(t, res.NotModified)
	assert.Equal(t, `"v1"`, res.Token)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "Hello", res.Value[0].Title)

	res, err = c.FetchPosts(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, res.NotModified)
	assert.Equal(t, `"v1"`, res.Token, "a 304 keeps the caller's token")
	assert.Empty(t, res.Value)
	assert.Equal(t, 2, calls)
}

func TestFetchSettings_ParsesNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiBase+"/settings/", r.URL.Path)
		w.Write([]byte(`{"settings":[
			{"id":"7","key":"title","value":"My Blog"},
			{"id":"not-a-number","key":"description","value":"notes"}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	res, err := c.FetchSettings(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	assert.Equal(t, 7, res.Value[0].ID)
	assert.Equal(t, "My Blog", res.Value[0].Value)
	// a malformed id never drops the row, only its numeric identity
	assert.Equal(t, 0, res.Value[1].ID)
	assert.Equal(t, "description", res.Value[1].Key)
}

func TestLogin_PasswordGrantAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case apiBase + "/authentication/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "pat@example.com", r.PostForm.Get("username"))
			w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1"}`))
		case apiBase + "/users/me/":
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"users":[{"id":"u1","name":"Pat","slug":"pat","email":"pat@example.com"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	s, err := c.Login(ctx, Credentials{BlogURL: srv.URL, Email: "pat@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "at-1", s.AccessToken)
	assert.Equal(t, "rt-1", s.RefreshToken)

	// the session is installed for subsequent requests
	res, err := c.FetchCurrentUser(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Pat", res.Value.Name)
}

func TestStatusError_Taxonomy(t *testing.T) {
	cases := []struct {
		code int
		kind ErrorKind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnprocessableEntity, KindUnprocessable},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindInternal},
	}
	for _, tc := range cases {
		e := statusError(tc.code, "boom")
		assert.Equal(t, tc.kind, e.Kind, "status %d", tc.code)
		assert.Equal(t, tc.code, e.StatusCode)
	}
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{Kind: KindConnectivity}).Retryable())
	assert.True(t, (&APIError{Kind: KindRateLimited}).Retryable())
	assert.True(t, (&APIError{Kind: KindInternal, StatusCode: 503}).Retryable())
	assert.False(t, (&APIError{Kind: KindUnauthorized, StatusCode: 401}).Retryable())
	assert.False(t, (&APIError{Kind: KindUnprocessable, StatusCode: 422}).Retryable())
}

func TestErrorMessage_ServerEnvelope(t *testing.T) {
	msg := errorMessage([]byte(`{"errors":[{"message":"Access denied"}]}`))
	assert.Equal(t, "Access denied", msg)

	msg = errorMessage([]byte(`plain text`))
	assert.Equal(t, "plain text", msg)
}

func TestHTTPErrors_MappedToKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"nope"}]}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.FetchPosts(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err), "403 and 401 land in the same bucket")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestConnectionRefused_IsConnectivity(t *testing.T) {
	// grab a port nothing listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c, err := New("http://"+addr, nil)
	require.NoError(t, err)

	_, err = c.FetchPosts(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, KindConnectivity, KindOf(err))
}
