package antibot

import (
	"math/rand/v2"
	"sync"

	"github.com/fwojciec/listwalk"
)

// UserAgents is the rotation pool: current-ish Chrome, Firefox, Safari
// and Edge across Windows, macOS and Linux.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// AcceptLanguages is the Accept-Language rotation pool.
var AcceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.7",
	"en-GB,en;q=0.9,en-US;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
}

// clientHintPlatforms feeds Sec-CH-UA-Platform when client hints are added.
var clientHintPlatforms = []string{`"Windows"`, `"macOS"`, `"Linux"`}

const secChUA = `"Not_A Brand";v="8", "Chromium";v="120"`

// clientHintProbability is the chance an identity carries client hints.
const clientHintProbability = 0.3

// Ensure Rotator implements listwalk.IdentityRotator.
var _ listwalk.IdentityRotator = (*Rotator)(nil)

// Rotator builds randomized request identities and rotates proxies.
// Safe for concurrent use, so a single Rotator may back a session pool
// shared by unrelated crawls.
type Rotator struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	proxies []string
}

// RotatorOption configures a Rotator.
type RotatorOption func(*Rotator)

// WithProxies sets the proxy pool. An empty string entry is the
// "no proxy" sentinel meaning a direct connection.
func WithProxies(proxies []string) RotatorOption {
	return func(r *Rotator) {
		r.proxies = proxies
	}
}

// WithRotatorRand sets the random source used for identity draws.
// Defaults to the shared global source.
func WithRotatorRand(rnd *rand.Rand) RotatorOption {
	return func(r *Rotator) {
		r.rnd = rnd
	}
}

// NewRotator creates a Rotator. With no options the proxy pool holds only
// the direct-connection sentinel.
func NewRotator(opts ...RotatorOption) *Rotator {
	r := &Rotator{
		proxies: []string{""},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildIdentity draws a fresh identity: a user agent and accept-language
// from the pools, a fixed base header set, and (with ~30% probability)
// client-hint headers.
func (r *Rotator) BuildIdentity() listwalk.Identity {
	extra := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
	if r.float64() < clientHintProbability {
		extra["Sec-CH-UA"] = secChUA
		extra["Sec-CH-UA-Mobile"] = "?0"
		extra["Sec-CH-UA-Platform"] = clientHintPlatforms[r.intN(len(clientHintPlatforms))]
	}
	return listwalk.Identity{
		UserAgent:      UserAgents[r.intN(len(UserAgents))],
		AcceptLanguage: AcceptLanguages[r.intN(len(AcceptLanguages))],
		Extra:          extra,
	}
}

// RotateProxy draws a proxy URL from the pool. The sentinel entry (and an
// empty pool) yield "", meaning a direct connection.
func (r *Rotator) RotateProxy() string {
	if len(r.proxies) == 0 {
		return ""
	}
	return r.proxies[r.intN(len(r.proxies))]
}

func (r *Rotator) float64() float64 {
	if r.rnd == nil {
		return rand.Float64()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *Rotator) intN(n int) int {
	if r.rnd == nil {
		return rand.IntN(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}
