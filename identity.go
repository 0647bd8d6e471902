package listwalk

// Identity is a randomized-but-plausible browser identity attached to an
// outgoing request. Identities are drawn from fixed pools; repetition
// across requests is acceptable.
type Identity struct {
	UserAgent      string
	AcceptLanguage string

	// Extra holds the remaining header set (Accept, Accept-Encoding,
	// security/fetch metadata, optional client hints). It never contains
	// User-Agent or Accept-Language.
	Extra map[string]string
}

// Headers returns the complete header set for the identity as a fresh map,
// so callers cannot corrupt shared pool state.
func (id Identity) Headers() map[string]string {
	h := make(map[string]string, len(id.Extra)+2)
	for k, v := range id.Extra {
		h[k] = v
	}
	if id.UserAgent != "" {
		h["User-Agent"] = id.UserAgent
	}
	if id.AcceptLanguage != "" {
		h["Accept-Language"] = id.AcceptLanguage
	}
	return h
}

// IdentityRotator produces request identities and proxy choices.
type IdentityRotator interface {
	// BuildIdentity draws a fresh identity from the configured pools.
	BuildIdentity() Identity

	// RotateProxy draws a proxy URL from the configured pool.
	// An empty string means a direct connection.
	RotateProxy() string
}
