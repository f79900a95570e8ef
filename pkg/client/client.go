package client

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/zfogg/threadline/pkg/config"
	"github.com/zfogg/threadline/pkg/logger"
)

const userAgent = "Threadline-CLI/0.1.0"

// RequestIDHeader is sent with every request so backend logs can be correlated
const RequestIDHeader = "X-Request-ID"

var (
	mu         sync.Mutex
	httpClient *resty.Client
)

func newClient(baseURL string) *resty.Client {
	c := resty.New()

	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second

	c.SetBaseURL(baseURL)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	c.SetHeader("User-Agent", userAgent)
	c.SetHeader("Accept", "application/json")

	// Credentials travel as cookies; a fresh jar per client keeps sessions separate
	jar, _ := cookiejar.New(nil)
	c.SetCookieJar(jar)

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL, "request_id", req.Header.Get(RequestIDHeader))
		return nil
	})

	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response",
			"status", resp.StatusCode(),
			"url", resp.Request.URL,
			"duration", resp.Time(),
		)
		return nil
	})

	return c
}

// Init initializes the HTTP client from configuration
func Init() {
	mu.Lock()
	defer mu.Unlock()
	httpClient = newClient(config.GetString("api.base_url"))
}

// InitWithBaseURL initializes the HTTP client against an explicit backend URL
func InitWithBaseURL(baseURL string) {
	mu.Lock()
	defer mu.Unlock()
	httpClient = newClient(baseURL)
}

// GetClient returns the HTTP client
func GetClient() *resty.Client {
	mu.Lock()
	defer mu.Unlock()
	if httpClient == nil {
		httpClient = newClient(config.GetString("api.base_url"))
	}
	return httpClient
}

// SetSessionCookies seeds the cookie jar with a saved backend session
func SetSessionCookies(cookies []*http.Cookie) {
	c := GetClient()
	u, err := url.Parse(c.BaseURL)
	if err != nil || len(cookies) == 0 {
		return
	}
	// Cookies saved without a path would otherwise be scoped to the request path
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.GetClient().Jar.SetCookies(u, cookies)
}

// SessionCookies returns the cookies the jar would send to the backend
func SessionCookies() []*http.Cookie {
	c := GetClient()
	u, err := url.Parse(c.BaseURL)
	if err != nil || c.GetClient().Jar == nil {
		return nil
	}
	return c.GetClient().Jar.Cookies(u)
}

// ClearSession drops all session cookies by rebuilding the client
func ClearSession() {
	mu.Lock()
	defer mu.Unlock()
	baseURL := config.GetString("api.base_url")
	if httpClient != nil {
		baseURL = httpClient.BaseURL
	}
	httpClient = newClient(baseURL)
}
