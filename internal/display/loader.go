package display

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"workorder-board/internal/types"
)

// Default resource names, relative to the page URL
const (
	NumberResource  = "data.txt"
	DetailsResource = "work_order_details.html"
)

// Loader fills a Page from the two published resources. A failed fetch
// leaves its region untouched and is only logged at debug level.
type Loader struct {
	base        *url.URL
	client      *http.Client
	page        *Page
	nonce       *Nonce
	now         func() time.Time
	sanitize    bool
	numberPath  string
	detailsPath string
	onLoad      func(types.Snapshot)
}

// Option configures a Loader
type Option func(*Loader)

// WithHTTPClient sets the client used for both fetches
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithClock sets the clock used for nonces and load timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithSanitize strips script-capable markup from the details fragment
func WithSanitize(enabled bool) Option {
	return func(l *Loader) { l.sanitize = enabled }
}

// WithResources overrides the two resource names
func WithResources(number, details string) Option {
	return func(l *Loader) {
		l.numberPath = number
		l.detailsPath = details
	}
}

// WithOnLoad registers a callback receiving the page after every Load
func WithOnLoad(fn func(types.Snapshot)) Option {
	return func(l *Loader) { l.onLoad = fn }
}

// NewLoader returns a loader resolving resources against pageURL the way a
// browser resolves relative links from the page.
func NewLoader(pageURL string, page *Page, opts ...Option) (*Loader, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid page url %q: scheme and host required", pageURL)
	}
	if page == nil {
		page = NewPage()
	}

	l := &Loader{
		base:        base,
		client:      &http.Client{Timeout: 30 * time.Second},
		page:        page,
		now:         time.Now,
		numberPath:  NumberResource,
		detailsPath: DetailsResource,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.nonce = NewNonce(l.now)
	return l, nil
}

// Page returns the page the loader writes to
func (l *Loader) Page() *Page {
	return l.page
}

// ResourceURL returns the cache-busted URL for a resource name
func (l *Loader) ResourceURL(name string) string {
	ref := &url.URL{Path: name, RawQuery: l.nonce.Next()}
	return l.base.ResolveReference(ref).String()
}

// LoadNumber fetches the number resource and shows it trimmed. It reports
// whether the region was updated.
func (l *Loader) LoadNumber(ctx context.Context) bool {
	body, err := l.fetchText(ctx, l.numberPath)
	if err != nil {
		logrus.WithError(err).WithField("resource", l.numberPath).Debug("Number not updated")
		return false
	}
	l.page.SetNumber(strings.TrimSpace(body), l.now())
	return true
}

// LoadDetails fetches the details fragment and replaces the container with
// it. It reports whether the region was updated.
func (l *Loader) LoadDetails(ctx context.Context) bool {
	body, err := l.fetchText(ctx, l.detailsPath)
	if err != nil {
		logrus.WithError(err).WithField("resource", l.detailsPath).Debug("Details not updated")
		return false
	}

	if l.sanitize {
		clean, err := Sanitize(body)
		if err != nil {
			logrus.WithError(err).WithField("resource", l.detailsPath).Debug("Details not updated")
			return false
		}
		body = clean
	}
	l.page.SetDetails(body, l.now())
	return true
}

// Load runs both loads concurrently and returns once both have finished
func (l *Loader) Load(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		l.LoadNumber(ctx)
		return nil
	})
	g.Go(func() error {
		l.LoadDetails(ctx)
		return nil
	})
	_ = g.Wait()

	if l.onLoad != nil {
		l.onLoad(l.page.Snapshot())
	}
}

// Run loads once, then again every interval until ctx is done. With a
// non-positive interval it loads once and returns.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	l.Load(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Load(ctx)
		}
	}
}

func (l *Loader) fetchText(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.ResourceURL(name), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
