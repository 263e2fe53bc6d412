// Package client talks to the blog's admin HTTP API. All reads are
// conditional: the caller passes the validator token from the previous
// fetch, and a fresh body is returned only when upstream content changed.
package client

import (
	"context"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// FetchResult carries a conditional read's outcome. When NotModified is
// true the payload fields are zero and Token repeats the token passed in.
type FetchResult[T any] struct {
	Value       T
	Token       string
	NotModified bool
}

// Credentials is the login payload for the blog's session endpoint.
type Credentials struct {
	BlogURL  string
	Email    string
	Password string
}

// Session is the authenticated state returned by Login.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Client is the upstream API surface the sync layer depends on.
type Client interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context) error

	FetchPosts(ctx context.Context, token string) (FetchResult[[]models.Post], error)
	FetchCurrentUser(ctx context.Context, token string) (FetchResult[models.User], error)
	FetchSettings(ctx context.Context, token string) (FetchResult[[]models.Setting], error)
	FetchConfiguration(ctx context.Context, token string) (FetchResult[[]models.ConfigurationParam], error)
	FetchVersion(ctx context.Context, token string) (FetchResult[string], error)

	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)
	UpdatePost(ctx context.Context, p *models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error

	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
}
