package slog_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fwojciec/listwalk"
	"github.com/fwojciec/listwalk/mock"
	walkslog "github.com/fwojciec/listwalk/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingPaginator_ResolveNext(t *testing.T) {
	t.Parallel()

	t.Run("logs the selected strategy", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Paginator{
			ResolveNextFn: func(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error) {
				return &listwalk.Candidate{
					URL:      "https://example.com/catalogue/page-2.html",
					Strategy: listwalk.StrategyNextButton,
				}, nil
			},
		}

		paginator := walkslog.NewLoggingPaginator(inner, logger)
		page := &listwalk.Page{URL: "https://example.com/catalogue/page-1.html", StatusCode: 200}
		candidate, err := paginator.ResolveNext(page, listwalk.NewVisitedSet())

		require.NoError(t, err)
		require.NotNil(t, candidate)
		output := buf.String()
		assert.Contains(t, output, "pagination")
		assert.Contains(t, output, "url=https://example.com/catalogue/page-1.html")
		assert.Contains(t, output, "strategy=next_button")
		assert.Contains(t, output, "next=https://example.com/catalogue/page-2.html")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs when no next page exists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Paginator{
			ResolveNextFn: func(page *listwalk.Page, visited *listwalk.VisitedSet) (*listwalk.Candidate, error) {
				return nil, nil
			},
		}

		paginator := walkslog.NewLoggingPaginator(inner, logger)
		page := &listwalk.Page{URL: "https://example.com/catalogue/page-50.html", StatusCode: 200}
		candidate, err := paginator.ResolveNext(page, listwalk.NewVisitedSet())

		require.NoError(t, err)
		assert.Nil(t, candidate)
		assert.Contains(t, buf.String(), "strategy=(none)")
	})
}

func TestLoggingPaginator_ListPageURLs(t *testing.T) {
	t.Parallel()

	t.Run("delegates to inner paginator", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Paginator{
			ListPageURLsFn: func(page *listwalk.Page, limit int) ([]string, error) {
				return []string{
					"https://example.com/catalogue/page-1.html",
					"https://example.com/catalogue/page-2.html",
				}, nil
			},
		}

		paginator := walkslog.NewLoggingPaginator(inner, logger)
		page := &listwalk.Page{URL: "https://example.com/catalogue/page-1.html", StatusCode: 200}
		urls, err := paginator.ListPageURLs(page, 10)

		require.NoError(t, err)
		assert.Len(t, urls, 2)
	})
}
