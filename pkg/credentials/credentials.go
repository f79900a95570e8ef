package credentials

import (
	"net/http"
	"os"
	"time"

	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/config"
)

// Cookie is the persisted form of a backend session cookie
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// Credentials holds the session cookies issued by the backend at login
type Credentials struct {
	Cookies  []Cookie  `json:"cookies"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	SavedAt  time.Time `json:"saved_at"`
}

// FromHTTP builds credentials from cookies set on a login/signup response
func FromHTTP(cookies []*http.Cookie, userID, username string) *Credentials {
	creds := &Credentials{
		UserID:   userID,
		Username: username,
		SavedAt:  time.Now(),
	}
	for _, c := range cookies {
		creds.Cookies = append(creds.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return creds
}

// HTTPCookies converts persisted cookies back, dropping expired ones
func (c *Credentials) HTTPCookies() []*http.Cookie {
	now := time.Now()
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		if !ck.Expires.IsZero() && ck.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Path:     ck.Path,
			Domain:   ck.Domain,
			Expires:  ck.Expires,
			Secure:   ck.Secure,
			HttpOnly: ck.HttpOnly,
		})
	}
	return out
}

// IsValid reports whether at least one unexpired cookie remains
func (c *Credentials) IsValid() bool {
	return c != nil && len(c.HTTPCookies()) > 0
}

// Load loads credentials from disk
func Load() (*Credentials, error) {
	path := config.GetCredentialsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// Save saves credentials to disk
func Save(creds *Credentials) error {
	path := config.GetCredentialsPath()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only
	return os.WriteFile(path, data, 0600)
}

// Delete deletes credentials from disk
func Delete() error {
	path := config.GetCredentialsPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
