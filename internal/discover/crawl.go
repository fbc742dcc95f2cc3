package discover

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// crawl is the fallback discovery path: a sequential breadth-first walk
// from the root, same-origin only, paced so the target site is never
// hammered. The frontier and visited set are local to the call; the
// walk must stay sequential for them to be safe.
func (d *Discoverer) crawl(ctx context.Context, root *url.URL, maxPages int) []string {
	group := d.robotsGroup(ctx, root)

	seed := canonicalize(root)
	visited := map[string]bool{}
	queued := map[string]bool{seed: true}
	frontier := []string{seed}

	var pages []string
	for len(frontier) > 0 && len(pages) < maxPages {
		current := frontier[0]
		frontier = frontier[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		if err := d.limiter.Wait(ctx, current); err != nil {
			break
		}

		body, contentType, status, err := d.get(ctx, current)
		if err != nil {
			d.logger.Debug("crawl fetch failed", zap.String("url", current), zap.Error(err))
			continue
		}
		if status != http.StatusOK || !strings.Contains(contentType, "text/html") {
			continue
		}

		// The seed is recorded as the caller gave it, not canonicalized.
		if current == seed {
			pages = append(pages, root.String())
		} else {
			pages = append(pages, current)
		}

		base, err := url.Parse(current)
		if err != nil {
			continue
		}
		for _, link := range extractLinks(body) {
			resolved, ok := sameOriginPage(base, root, link)
			if !ok {
				continue
			}
			if visited[resolved] || queued[resolved] {
				continue
			}
			if group != nil && !group.Test(pathOf(resolved)) {
				continue
			}
			queued[resolved] = true
			frontier = append(frontier, resolved)
		}
	}
	return pages
}

// robotsGroup fetches origin/robots.txt and returns the group for the
// configured agent. Missing or unreadable robots.txt means allow-all
// (nil group).
func (d *Discoverer) robotsGroup(ctx context.Context, root *url.URL) *robotstxt.Group {
	if !d.robots {
		return nil
	}
	robotsURL := root.Scheme + "://" + root.Host + "/robots.txt"
	body, _, status, err := d.get(ctx, robotsURL)
	if err != nil || status != http.StatusOK {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	agent := d.userAgent
	if agent == "" {
		agent = "*"
	}
	return data.FindGroup(agent)
}

// extractLinks pulls href values from anchor tags. Parse failures yield
// no links rather than an error.
func extractLinks(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// sameOriginPage resolves href against the page it appeared on and
// keeps it only when it stays on the root's origin, canonicalized
// without query or fragment. Relative hrefs follow HTML base semantics,
// so "guide.html" on /docs/ resolves under /docs/.
func sameOriginPage(base, root *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != root.Scheme || resolved.Host != root.Host {
		return "", false
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return canonicalize(resolved), true
}

// canonicalize strips query and fragment, keeping scheme://host/path.
func canonicalize(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

func pathOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
