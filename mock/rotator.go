package mock

import (
	"github.com/fwojciec/listwalk"
)

var _ listwalk.IdentityRotator = (*IdentityRotator)(nil)

// IdentityRotator is a mock implementation of listwalk.IdentityRotator.
type IdentityRotator struct {
	BuildIdentityFn func() listwalk.Identity
	RotateProxyFn   func() string
}

func (r *IdentityRotator) BuildIdentity() listwalk.Identity {
	if r.BuildIdentityFn == nil {
		return listwalk.Identity{}
	}
	return r.BuildIdentityFn()
}

func (r *IdentityRotator) RotateProxy() string {
	if r.RotateProxyFn == nil {
		return ""
	}
	return r.RotateProxyFn()
}
