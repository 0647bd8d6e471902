package goquery

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/listwalk"
)

// FieldRule maps one record field to an element inside a listed item.
type FieldRule struct {
	// Name is the record key the value is stored under.
	Name string
	// Selector locates the value's element within the item. Empty reads
	// from the item element itself.
	Selector string
	// Attr names the attribute to read. Empty reads the text content.
	Attr string
	// Resolve treats the value as a URL relative to the page.
	Resolve bool
}

// Config describes how a listing page maps to records.
type Config struct {
	// Item locates one element per listed item.
	Item string
	// Fields are extracted per item.
	Fields []FieldRule
}

// DefaultConfig extracts product pods the way catalogue demo sites lay
// them out: one article per product with a titled link and a price.
func DefaultConfig() Config {
	return Config{
		Item: "article.product_pod",
		Fields: []FieldRule{
			{Name: "name", Selector: "h3 a", Attr: "title"},
			{Name: "price", Selector: "p.price_color"},
			{Name: "link", Selector: "h3 a", Attr: "href", Resolve: true},
		},
	}
}

// Ensure Extractor implements listwalk.Extractor.
var _ listwalk.Extractor = (*Extractor)(nil)

// Extractor pulls one record per item element from a listing page.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor driven by the given config.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Fields returns the configured field names in extraction order.
func (e *Extractor) Fields() []string {
	names := make([]string, len(e.cfg.Fields))
	for i, f := range e.cfg.Fields {
		names[i] = f.Name
	}
	return names
}

// Extract implements listwalk.Extractor. A page without matching items
// yields zero records and no error.
func (e *Extractor) Extract(ctx context.Context, page *listwalk.Page) ([]listwalk.Record, error) {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, listwalk.Errorf(listwalk.EINVALID, "invalid page URL %q", page.URL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, err
	}

	var records []listwalk.Record
	doc.Find(e.cfg.Item).Each(func(_ int, item *goquery.Selection) {
		rec := make(listwalk.Record, len(e.cfg.Fields))
		for _, f := range e.cfg.Fields {
			sel := item
			if f.Selector != "" {
				sel = item.Find(f.Selector).First()
			}
			var v string
			if f.Attr != "" {
				v = strings.TrimSpace(sel.AttrOr(f.Attr, ""))
			} else {
				v = strings.TrimSpace(sel.Text())
			}
			if f.Resolve && v != "" {
				v = resolveURL(base, v)
			}
			rec[f.Name] = v
		}
		records = append(records, rec)
	})

	return records, nil
}
