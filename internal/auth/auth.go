// Package auth persists the login session. Tokens and credentials are
// sealed with a key derived from a per-install random secret kept outside
// the database file, so a copied database alone is not enough to read
// them.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/cryptox"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/metadata"
)

const (
	keyLoggedIn  = "logged_in"
	keyCreds     = "credentials"
	keyCredNonce = "credentials_nonce"

	secretLen = 32
	saltLen   = 16
)

// StoredSession is the sealed login state.
type StoredSession struct {
	BlogURL      string `json:"blog_url"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Manager seals and unseals the session against the metadata escrow.
type Manager struct {
	meta       metadata.Repository
	secretPath string
	log        logging.Logger
}

func NewManager(meta metadata.Repository, secretPath string, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{meta: meta, secretPath: secretPath, log: log}
}

// key loads the install secret, creating it on first use. The file holds
// the raw secret followed by the key-derivation salt.
func (m *Manager) key() ([]byte, error) {
	raw, err := os.ReadFile(m.secretPath)
	if errors.Is(err, os.ErrNotExist) {
		raw = make([]byte, secretLen+saltLen)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(m.secretPath), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(m.secretPath, raw, 0o600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if len(raw) != secretLen+saltLen {
		return nil, fmt.Errorf("install secret %s is corrupt", m.secretPath)
	}
	return cryptox.DeriveKey(raw[:secretLen], raw[secretLen:]), nil
}

// Save seals the session and marks the install as logged in.
func (m *Manager) Save(ctx context.Context, s *StoredSession) error {
	key, err := m.key()
	if err != nil {
		return err
	}
	ciphertext, nonce, err := cryptox.EncryptValue(s, key)
	if err != nil {
		return err
	}
	if err := m.meta.Set(ctx, keyCreds, ciphertext); err != nil {
		return err
	}
	if err := m.meta.Set(ctx, keyCredNonce, nonce); err != nil {
		return err
	}
	return m.meta.Set(ctx, keyLoggedIn, []byte("1"))
}

// Load unseals the stored session. Returns ErrNotLoggedIn when no session
// is stored or the destructive migration cleared it.
func (m *Manager) Load(ctx context.Context) (*StoredSession, error) {
	flag, err := m.meta.Get(ctx, keyLoggedIn)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, common.ErrNotLoggedIn
	}
	ciphertext, err := m.meta.Get(ctx, keyCreds)
	if err != nil {
		return nil, err
	}
	nonce, err := m.meta.Get(ctx, keyCredNonce)
	if err != nil {
		return nil, err
	}
	if ciphertext == nil || nonce == nil {
		return nil, common.ErrNotLoggedIn
	}
	key, err := m.key()
	if err != nil {
		return nil, err
	}
	var s StoredSession
	if err := cryptox.DecryptValue(ciphertext, nonce, key, &s); err != nil {
		m.log.Warn(ctx, "stored session cannot be unsealed, treating as logged out", "error", err)
		return nil, common.ErrNotLoggedIn
	}
	return &s, nil
}

// LoggedIn reports whether a session is stored.
func (m *Manager) LoggedIn(ctx context.Context) bool {
	flag, err := m.meta.Get(ctx, keyLoggedIn)
	return err == nil && flag != nil
}

// Clear removes the stored session.
func (m *Manager) Clear(ctx context.Context) error {
	for _, k := range []string{keyCreds, keyCredNonce, keyLoggedIn} {
		if err := m.meta.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// TokenExpiresAt reads the expiry claim from a token without verifying
// its signature. The client never holds the server's signing key; expiry
// is the only claim it needs.
func TokenExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token is past its expiry, with a small
// margin so a token about to lapse mid-sync counts as expired. A token
// whose expiry cannot be read counts as expired.
func TokenExpired(token string, now time.Time) bool {
	exp, err := TokenExpiresAt(token)
	if err != nil {
		return true
	}
	return !now.Add(30 * time.Second).Before(exp)
}
