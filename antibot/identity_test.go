package antibot_test

import (
	"math/rand/v2"
	"testing"

	"github.com/fwojciec/listwalk/antibot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotator_BuildIdentity(t *testing.T) {
	t.Parallel()

	t.Run("draws come from the fixed pools", func(t *testing.T) {
		t.Parallel()

		r := antibot.NewRotator()
		for i := 0; i < 25; i++ {
			id := r.BuildIdentity()
			assert.Contains(t, antibot.UserAgents, id.UserAgent)
			assert.Contains(t, antibot.AcceptLanguages, id.AcceptLanguage)
		}
	})

	t.Run("carries the base header set", func(t *testing.T) {
		t.Parallel()

		id := antibot.NewRotator().BuildIdentity()

		assert.Equal(t, "gzip, deflate, br", id.Extra["Accept-Encoding"])
		assert.Equal(t, "1", id.Extra["DNT"])
		assert.Equal(t, "keep-alive", id.Extra["Connection"])
		assert.Equal(t, "navigate", id.Extra["Sec-Fetch-Mode"])
		assert.Equal(t, "max-age=0", id.Extra["Cache-Control"])
	})

	t.Run("same seed reproduces the same identities", func(t *testing.T) {
		t.Parallel()

		a := antibot.NewRotator(antibot.WithRotatorRand(rand.New(rand.NewPCG(5, 13))))
		b := antibot.NewRotator(antibot.WithRotatorRand(rand.New(rand.NewPCG(5, 13))))

		for i := 0; i < 10; i++ {
			assert.Equal(t, a.BuildIdentity(), b.BuildIdentity())
		}
	})

	t.Run("client hints appear on roughly a third of identities", func(t *testing.T) {
		t.Parallel()

		r := antibot.NewRotator(antibot.WithRotatorRand(rand.New(rand.NewPCG(1, 2))))
		hinted := 0
		for i := 0; i < 200; i++ {
			if _, ok := r.BuildIdentity().Extra["Sec-CH-UA"]; ok {
				hinted++
			}
		}

		assert.Greater(t, hinted, 20)
		assert.Less(t, hinted, 120)
	})

	t.Run("client hint platform comes from the fixed pool", func(t *testing.T) {
		t.Parallel()

		r := antibot.NewRotator(antibot.WithRotatorRand(rand.New(rand.NewPCG(1, 2))))
		var platform string
		for i := 0; i < 100; i++ {
			id := r.BuildIdentity()
			if p, ok := id.Extra["Sec-CH-UA-Platform"]; ok {
				platform = p
				assert.Equal(t, "?0", id.Extra["Sec-CH-UA-Mobile"])
				break
			}
		}

		require.NotEmpty(t, platform, "no hinted identity in 100 draws")
		assert.Contains(t, []string{`"Windows"`, `"macOS"`, `"Linux"`}, platform)
	})
}

func TestRotator_RotateProxy(t *testing.T) {
	t.Parallel()

	t.Run("defaults to a direct connection", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, antibot.NewRotator().RotateProxy())
	})

	t.Run("empty pool is a direct connection", func(t *testing.T) {
		t.Parallel()

		r := antibot.NewRotator(antibot.WithProxies(nil))
		assert.Empty(t, r.RotateProxy())
	})

	t.Run("draws from the configured pool", func(t *testing.T) {
		t.Parallel()

		pool := []string{"", "http://proxy1:8080", "http://proxy2:8080"}
		r := antibot.NewRotator(antibot.WithProxies(pool))

		for i := 0; i < 25; i++ {
			assert.Contains(t, pool, r.RotateProxy())
		}
	})

	t.Run("single proxy pool always returns it", func(t *testing.T) {
		t.Parallel()

		r := antibot.NewRotator(antibot.WithProxies([]string{"http://proxy1:8080"}))
		for i := 0; i < 5; i++ {
			assert.Equal(t, "http://proxy1:8080", r.RotateProxy())
		}
	})
}
