// Package metadata fetches best-effort page metadata (title, description,
// preview image) for an arbitrary URL, used to enrich link entries. Fetching
// never fails into the caller: every error degrades to a minimal result that
// carries the URL as its title.
package metadata

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultTimeout bounds one metadata fetch end to end.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of the page is read while looking for the head
// section.
const maxBodyBytes = 1 << 20

// Metadata is what could be extracted from a page.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type Fetcher struct {
	client *http.Client
	log    *slog.Logger
}

func NewFetcher(timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch loads the page and extracts its metadata. Any failure (bad URL,
// network error, non-HTML response, unparseable markup) returns the degraded
// result instead of an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Metadata {
	degraded := Metadata{Title: rawURL}

	base, err := url.Parse(rawURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return degraded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return degraded
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TripboardBot/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("metadata fetch failed", "url", rawURL, "error", err)
		return degraded
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Debug("metadata fetch got non-200", "url", rawURL, "status", resp.StatusCode)
		return degraded
	}

	meta := Extract(base, io.LimitReader(resp.Body, maxBodyBytes))
	if meta.Title == "" {
		meta.Title = rawURL
	}
	return meta
}

// Extract parses HTML and pulls title, description, and preview image from
// the usual places, in decreasing order of trust: Open Graph, Twitter cards,
// schema.org itemprop, then the plain <title> element. Relative image URLs
// are resolved against base.
func Extract(base *url.URL, r io.Reader) Metadata {
	doc, err := html.Parse(r)
	if err != nil {
		return Metadata{}
	}

	var (
		meta      Metadata
		titleTag  string
		twTitle   string
		plainDesc string
		twImage   string
		propImage string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && titleTag == "" {
					titleTag = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				key, content := metaAttrs(n)
				if content == "" {
					break
				}
				switch key {
				case "og:title":
					meta.Title = content
				case "twitter:title":
					twTitle = content
				case "og:description":
					meta.Description = content
				case "description":
					plainDesc = content
				case "og:image":
					meta.ImageURL = content
				case "twitter:image":
					twImage = content
				case "image":
					propImage = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if meta.Title == "" {
		meta.Title = twTitle
	}
	if meta.Title == "" {
		meta.Title = titleTag
	}
	if meta.Description == "" {
		meta.Description = plainDesc
	}
	if meta.ImageURL == "" {
		meta.ImageURL = twImage
	}
	if meta.ImageURL == "" {
		meta.ImageURL = propImage
	}
	meta.ImageURL = resolveURL(base, meta.ImageURL)
	return meta
}

// metaAttrs returns the lookup key of a meta element (property, name, or
// itemprop) and its content.
func metaAttrs(n *html.Node) (key, content string) {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "property", "name", "itemprop":
			if key == "" {
				key = strings.ToLower(attr.Val)
			}
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	return key, content
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
