package discover

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// urlset is the <urlset> sitemap document: page entries.
type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapindex is the <sitemapindex> document: references to nested
// sitemaps.
type sitemapindex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// fromSitemap collects page URLs from origin/sitemap.xml. A sitemap
// index is followed one hop, into its first nested sitemap only. Fetch
// or parse trouble at any level yields an empty slice; the caller falls
// back to crawling.
func (d *Discoverer) fromSitemap(ctx context.Context, root *url.URL, maxPages int) []string {
	sitemapURL := root.Scheme + "://" + root.Host + "/sitemap.xml"
	body, ok := d.getSitemap(ctx, sitemapURL)
	if !ok {
		return nil
	}

	if nested, isIndex := firstNestedSitemap(body); isIndex {
		if nested == "" {
			return nil
		}
		body, ok = d.getSitemap(ctx, nested)
		if !ok {
			return nil
		}
	}
	return sitemapPages(root, body, maxPages)
}

func (d *Discoverer) getSitemap(ctx context.Context, sitemapURL string) ([]byte, bool) {
	body, _, status, err := d.get(ctx, sitemapURL)
	if err != nil || status != http.StatusOK {
		d.logger.Debug("sitemap unavailable",
			zap.String("url", sitemapURL),
			zap.Int("status", status),
			zap.Error(err),
		)
		return nil, false
	}
	return body, true
}

// firstNestedSitemap reports whether the document is a sitemap index
// and, if so, returns the location of its first nested sitemap.
func firstNestedSitemap(body []byte) (string, bool) {
	var index sitemapindex
	if err := xml.Unmarshal(body, &index); err != nil {
		return "", false
	}
	if len(index.Sitemaps) == 0 {
		return "", false
	}
	return strings.TrimSpace(index.Sitemaps[0].Loc), true
}

// sitemapPages extracts <url><loc> entries in document order, up to
// maxPages. Blank entries, entries off the root's origin, and
// duplicates (after query/fragment stripping) are dropped; a sitemap
// can only widen the audit to pages of the site being audited.
func sitemapPages(root *url.URL, body []byte, maxPages int) []string {
	var set urlset
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil
	}
	seen := map[string]bool{}
	var pages []string
	for _, entry := range set.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil {
			continue
		}
		if u.Scheme != root.Scheme || u.Host != root.Host {
			continue
		}
		key := canonicalize(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		pages = append(pages, loc)
		if len(pages) >= maxPages {
			break
		}
	}
	return pages
}
