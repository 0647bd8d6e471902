package http

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fwojciec/listwalk"
)

// DefaultPoolSize is the number of sessions a pool keeps by default.
const DefaultPoolSize = 3

// Session is one retrieval context handed out by a SessionPool: a
// client that keeps its cookies (and proxy) across uses, paired with a
// freshly built identity to send on the next request.
type Session struct {
	Client   *http.Client
	Identity listwalk.Identity
}

// SessionPool cycles through a fixed set of HTTP clients. Each client
// keeps its own cookie jar for the lifetime of the pool and, when the
// rotator supplies proxies, its own proxy. Identities are rebuilt on
// every checkout so consecutive requests through the same session can
// present different browser fingerprints.
type SessionPool struct {
	rotator listwalk.IdentityRotator
	clients []*http.Client
	index   atomic.Uint64
}

// SessionPoolOption configures a SessionPool.
type SessionPoolOption func(*sessionPoolConfig)

type sessionPoolConfig struct {
	size    int
	timeout time.Duration
}

// WithPoolSize sets the number of sessions in the pool.
// Defaults to DefaultPoolSize.
func WithPoolSize(n int) SessionPoolOption {
	return func(c *sessionPoolConfig) {
		c.size = n
	}
}

// WithSessionTimeout sets the per-request timeout of every session
// client. Defaults to DefaultFetchTimeout.
func WithSessionTimeout(d time.Duration) SessionPoolOption {
	return func(c *sessionPoolConfig) {
		c.timeout = d
	}
}

// NewSessionPool creates a pool of sessions whose proxies are assigned
// once, at creation, by the rotator.
func NewSessionPool(rotator listwalk.IdentityRotator, opts ...SessionPoolOption) (*SessionPool, error) {
	cfg := sessionPoolConfig{
		size:    DefaultPoolSize,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.size < 1 {
		return nil, listwalk.Errorf(listwalk.EINVALID, "pool size must be at least 1, got %d", cfg.size)
	}

	p := &SessionPool{rotator: rotator}
	for i := 0; i < cfg.size; i++ {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}

		transport := &http.Transport{
			// Identities advertise their own Accept-Encoding, so the
			// fetcher decodes response bodies itself.
			DisableCompression: true,
		}
		if proxy := rotator.RotateProxy(); proxy != "" {
			proxyURL, err := url.Parse(proxy)
			if err != nil {
				return nil, listwalk.Errorf(listwalk.EINVALID, "invalid proxy URL %q", proxy)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}

		p.clients = append(p.clients, &http.Client{
			Jar:       jar,
			Timeout:   cfg.timeout,
			Transport: transport,
		})
	}

	return p, nil
}

// Get checks out the next session round-robin, carrying a freshly
// built identity. Safe for concurrent use.
func (p *SessionPool) Get() *Session {
	i := p.index.Add(1) - 1
	return &Session{
		Client:   p.clients[i%uint64(len(p.clients))],
		Identity: p.rotator.BuildIdentity(),
	}
}

// Size reports how many sessions the pool cycles through.
func (p *SessionPool) Size() int {
	return len(p.clients)
}

// Close releases idle connections held by the pool's sessions.
func (p *SessionPool) Close() error {
	for _, c := range p.clients {
		c.CloseIdleConnections()
	}
	return nil
}
