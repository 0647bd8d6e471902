package crawl_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/listwalk/crawl"
	"github.com/stretchr/testify/assert"
)

func TestFrontier_Push_rejects_duplicate_URLs(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000, 0.01)

	ok := f.Push("https://books.example.com/catalogue/page-2.html")
	assert.True(t, ok, "first push should succeed")

	ok = f.Push("https://books.example.com/catalogue/page-2.html")
	assert.False(t, ok, "duplicate URL should be rejected")
}

func TestFrontier_Push_ignores_fragments(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000, 0.01)

	ok := f.Push("https://books.example.com/catalogue/page-2.html")
	assert.True(t, ok)

	ok = f.Push("https://books.example.com/catalogue/page-2.html#header")
	assert.False(t, ok, "fragment variant should count as a duplicate")

	url, ok := f.Pop()
	assert.True(t, ok)
	assert.Equal(t, "https://books.example.com/catalogue/page-2.html", url)
}

func TestFrontier_Pop_returns_URLs_in_push_order(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000, 0.01)

	f.Push("https://books.example.com/catalogue/page-2.html")
	f.Push("https://books.example.com/catalogue/page-3.html")
	f.Push("https://books.example.com/catalogue/page-4.html")

	url, ok := f.Pop()
	assert.True(t, ok)
	assert.Equal(t, "https://books.example.com/catalogue/page-2.html", url)

	url, ok = f.Pop()
	assert.True(t, ok)
	assert.Equal(t, "https://books.example.com/catalogue/page-3.html", url)

	url, ok = f.Pop()
	assert.True(t, ok)
	assert.Equal(t, "https://books.example.com/catalogue/page-4.html", url)

	_, ok = f.Pop()
	assert.False(t, ok, "pop on empty frontier should return false")
}

func TestFrontier_Len_tracks_queue_size(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000, 0.01)

	assert.Equal(t, 0, f.Len(), "new frontier should be empty")

	f.Push("https://books.example.com/catalogue/page-2.html")
	assert.Equal(t, 1, f.Len())

	f.Push("https://books.example.com/catalogue/page-3.html")
	assert.Equal(t, 2, f.Len())

	f.Pop()
	assert.Equal(t, 1, f.Len())

	f.Pop()
	assert.Equal(t, 0, f.Len())
}

func TestFrontier_Seen_tracks_all_pushed_URLs(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(1000, 0.01)

	assert.False(t, f.Seen("https://books.example.com/catalogue/page-2.html"), "unseen URL should return false")

	f.Push("https://books.example.com/catalogue/page-2.html")
	assert.True(t, f.Seen("https://books.example.com/catalogue/page-2.html"), "pushed URL should be seen")

	f.Pop()
	assert.True(t, f.Seen("https://books.example.com/catalogue/page-2.html"), "popped URL should still be seen")
}

func TestFrontier_concurrent_access(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(10000, 0.01)

	const numGoroutines = 10
	const numOpsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2) // pushers + poppers

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOpsPerGoroutine; j++ {
				f.Push(fmt.Sprintf("https://books.example.com/%d/%d", id, j))
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numOpsPerGoroutine; j++ {
				f.Pop()
				f.Len()
			}
		}()
	}

	wg.Wait()

	// All pushed URLs should be seen regardless of interleaving.
	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < numOpsPerGoroutine; j++ {
			url := fmt.Sprintf("https://books.example.com/%d/%d", i, j)
			assert.True(t, f.Seen(url), "pushed URL %s should be seen", url)
		}
	}
}
