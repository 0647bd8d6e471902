package http_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/fwojciec/listwalk"
	listwalkhttp "github.com/fwojciec/listwalk/http"
	"github.com/fwojciec/listwalk/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPool(t *testing.T) {
	t.Parallel()

	t.Run("rotates sessions round robin with sticky cookies", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var seen []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie("sid")
			mu.Lock()
			if err != nil {
				seen = append(seen, "")
			} else {
				seen = append(seen, c.Value)
			}
			n := len(seen)
			mu.Unlock()
			if err != nil {
				http.SetCookie(w, &http.Cookie{Name: "sid", Value: strconv.Itoa(n)})
			}
		}))
		defer server.Close()

		pool, err := listwalkhttp.NewSessionPool(&mock.IdentityRotator{}, listwalkhttp.WithPoolSize(2))
		require.NoError(t, err)
		defer pool.Close()

		for i := 0; i < 4; i++ {
			resp, err := pool.Get().Client.Get(server.URL)
			require.NoError(t, err)
			resp.Body.Close()
		}

		// Sessions alternate, and each keeps the cookie it was given.
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"", "", "1", "2"}, seen)
	})

	t.Run("builds a fresh identity on every checkout", func(t *testing.T) {
		t.Parallel()

		var calls int
		rotator := &mock.IdentityRotator{
			BuildIdentityFn: func() listwalk.Identity {
				calls++
				return listwalk.Identity{UserAgent: fmt.Sprintf("ua-%d", calls)}
			},
		}

		pool, err := listwalkhttp.NewSessionPool(rotator, listwalkhttp.WithPoolSize(1))
		require.NoError(t, err)
		defer pool.Close()

		first := pool.Get()
		second := pool.Get()
		assert.Equal(t, "ua-1", first.Identity.UserAgent)
		assert.Equal(t, "ua-2", second.Identity.UserAgent)
		assert.Same(t, first.Client, second.Client)
	})

	t.Run("assigns proxies once at creation", func(t *testing.T) {
		t.Parallel()

		var calls int
		rotator := &mock.IdentityRotator{
			RotateProxyFn: func() string {
				calls++
				return ""
			},
		}

		pool, err := listwalkhttp.NewSessionPool(rotator, listwalkhttp.WithPoolSize(3))
		require.NoError(t, err)
		defer pool.Close()

		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, pool.Size())
	})

	t.Run("rejects a pool size below one", func(t *testing.T) {
		t.Parallel()

		_, err := listwalkhttp.NewSessionPool(&mock.IdentityRotator{}, listwalkhttp.WithPoolSize(0))
		require.Error(t, err)
		assert.Equal(t, listwalk.EINVALID, listwalk.ErrorCode(err))
	})

	t.Run("rejects an invalid proxy url", func(t *testing.T) {
		t.Parallel()

		rotator := &mock.IdentityRotator{
			RotateProxyFn: func() string { return "://bad-proxy" },
		}

		_, err := listwalkhttp.NewSessionPool(rotator)
		require.Error(t, err)
		assert.Equal(t, listwalk.EINVALID, listwalk.ErrorCode(err))
	})
}
