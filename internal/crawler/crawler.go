// Package crawler discovers contact emails on institution websites with a
// shallow, bounded crawl: the base page plus a capped number of
// contact-looking pages. Institutions rarely publish emails on the
// homepage, and an unbounded recursive crawl would risk runaway request
// volume, so the cap is a hard bound, not a tuning hint.
package crawler

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/painel-rs/enrich-cli/internal/extract"
	"github.com/painel-rs/enrich-cli/internal/resilience"
)

const maxBodyBytes = 512 * 1024

// contactKeywords mark links likely to lead to a page listing contact
// information. Both the href and the visible link text are checked.
var contactKeywords = []string{"contato", "contact", "fale", "sobre", "about", "equipe", "team"}

// Options configures a Crawler.
type Options struct {
	Timeout         time.Duration // per-fetch timeout
	MaxContactPages int           // fetches beyond the base page
	PageGap         time.Duration // pause between fetches within one site
	UserAgent       string
}

// Crawler fetches pages and extracts emails. Safe for sequential reuse
// across institutions; the page pacer carries over so back-to-back sites
// still respect the gap.
type Crawler struct {
	client          *http.Client
	userAgent       string
	maxContactPages int
	pacer           *resilience.Pacer
}

// New creates a Crawler with the given options.
func New(opts Options) *Crawler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; EnrichBot/1.0)"
	}
	return &Crawler{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		userAgent:       ua,
		maxContactPages: opts.MaxContactPages,
		pacer:           resilience.NewPacer(opts.PageGap),
	}
}

// DiscoverEmails crawls baseURL and up to MaxContactPages contact-looking
// pages, returning the deduplicated union of discovered emails. An error
// is returned only when the base page itself cannot be fetched or parsed;
// contact-page failures are soft and logged.
func (c *Crawler) DiscoverEmails(ctx context.Context, baseURL string) ([]string, error) {
	normalized, err := normalizeURL(baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse url %s", baseURL)
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse url %s", baseURL)
	}

	doc, err := c.fetchHTML(ctx, normalized)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool)
	addAll(found, extract.Emails(visibleText(doc)))

	candidates := contactLinks(doc, base)
	limit := c.maxContactPages
	if limit > len(candidates) {
		limit = len(candidates)
	}

	for _, link := range candidates[:limit] {
		page, fetchErr := c.fetchHTML(ctx, link)
		if fetchErr != nil {
			zap.L().Debug("crawler: contact page failed",
				zap.String("url", link),
				zap.String("kind", string(resilience.Classify(fetchErr))),
				zap.Error(fetchErr),
			)
			continue
		}
		addAll(found, extract.Emails(visibleText(page)))
	}

	emails := make([]string, 0, len(found))
	for e := range found {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	return emails, nil
}

// fetchHTML gets a URL and parses the body as HTML. The pacer runs before
// every request so successive fetches keep the configured gap.
func (c *Crawler) fetchHTML(ctx context.Context, pageURL string) (*html.Node, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crawler: pacing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: fetch %s", pageURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("crawler: %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse %s", pageURL)
	}
	return doc, nil
}

// visibleText walks the HTML tree collecting text nodes, skipping script
// and style blocks.
func visibleText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if node.Type == html.TextNode {
			text := strings.TrimSpace(node.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// contactLinks enumerates anchors whose target or visible text contains a
// contact keyword, resolved to absolute URLs against base. Order follows
// document order; duplicates are dropped.
func contactLinks(doc *html.Node, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			href := attr(node, "href")
			if href != "" && isContactLink(href, visibleText(node)) {
				if resolved, ok := resolveLink(href, base); ok && !seen[resolved] {
					seen[resolved] = true
					links = append(links, resolved)
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

func isContactLink(href, text string) bool {
	href = strings.ToLower(href)
	text = strings.ToLower(text)
	for _, kw := range contactKeywords {
		if strings.Contains(href, kw) || strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func resolveLink(href string, base *url.URL) (string, bool) {
	if strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return "", false
	}
	rel, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(rel)
	abs.Fragment = ""
	return abs.String(), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func addAll(dst map[string]bool, emails []string) {
	for _, e := range emails {
		dst[e] = true
	}
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("empty url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
