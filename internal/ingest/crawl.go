package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

var skippedAssetExts = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".ico": true,
}

// ImportURL crawls pages on the base URL's host breadth-first and imports
// each page's visible text with the page URL as the resource link.
func (im *Importer) ImportURL(ctx context.Context, baseURL string, maxPages int) (int, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return 0, fmt.Errorf("invalid base url %q", baseURL)
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	log.Printf("[ingest] crawling base=%s namespace=%s maxPages=%d", base, im.namespace, maxPages)

	visited := make(map[string]bool)
	queue := []string{base.String()}
	pages, total := 0, 0

	for len(queue) > 0 && pages < maxPages {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		pages++

		page, err := im.fetch(ctx, current)
		if err != nil {
			log.Printf("[ingest] fetching %s: %v", current, err)
			continue
		}

		if text := sanitizeUTF8(strings.TrimSpace(extractMainText(page))); text != "" {
			title := extractTitle(page)
			if title == "" {
				title = urlToTitle(current, base)
			}
			n, err := im.storeDocument(ctx, title, current, current, text)
			total += n
			if err != nil {
				log.Printf("[ingest] storing %s: %v", current, err)
			}
		}

		for _, link := range extractLinks(page, base) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	return total, nil
}

func (im *Importer) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func urlToTitle(raw string, base *url.URL) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Path == base.Path || u.Path == base.Path+"/" {
		return "Overview"
	}

	last := path.Base(strings.Trim(u.Path, "/"))
	last = strings.SplitN(last, ".", 2)[0]
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	return strings.TrimSpace(last)
}

func extractTitle(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// extractMainText keeps the visible text nodes, one per line.
func extractMainText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "nav", "footer":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			if t := strings.TrimSpace(n.Data); len(t) > 1 {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	return strings.TrimSpace(b.String())
}

// extractLinks returns same-host page links without fragments or queries,
// deduplicated in document order.
func extractLinks(htmlStr string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if link, ok := resolveLink(a.Val, base); ok && !seen[link] {
					seen[link] = true
					out = append(out, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out
}

func resolveLink(href string, base *url.URL) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)

	if u.Host != base.Host || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	if skippedAssetExts[strings.ToLower(path.Ext(u.Path))] {
		return "", false
	}

	return u.Scheme + "://" + u.Host + u.Path, true
}
