package cme

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"warehouse-stocks/config"
	"warehouse-stocks/utils"
)

// cookieTTL bounds how long warm-up cookies are reused before another
// browser visit.
const cookieTTL = 10 * time.Minute

// BrowserSession visits the exchange site in headless Chrome and hands the
// resulting cookies to the Loader. The report host rejects clients that have
// never loaded a page.
type BrowserSession struct {
	url       string
	chromeBin string
	userAgent string
	logger    *utils.Logger

	// visit performs the browser round trip; now is the cache clock.
	visit func(ctx context.Context) ([]*http.Cookie, error)
	now   func() time.Time

	mu        sync.Mutex
	cookies   []*http.Cookie
	fetchedAt time.Time
}

// NewBrowserSession creates a session that warms up against cfg.BrowserWarmupURL.
func NewBrowserSession(cfg *config.Config, logger *utils.Logger) *BrowserSession {
	b := &BrowserSession{
		url:       cfg.BrowserWarmupURL,
		chromeBin: findChromeBinary(cfg.ChromeBin),
		userAgent: cfg.UserAgent,
		logger:    logger,
		now:       time.Now,
	}
	b.visit = b.browse
	return b
}

// Cookies returns cached cookies or performs a fresh browser visit. When a
// re-visit fails the expired cookies are returned instead; failures are never
// cached, so the next call tries again.
func (b *BrowserSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cookies != nil && b.now().Sub(b.fetchedAt) < cookieTTL {
		return b.cookies, nil
	}

	cookies, err := b.visit(ctx)
	if err != nil {
		if b.cookies != nil {
			b.logger.Warn("[browser] Warm-up failed, reusing cookies from %s: %v", b.fetchedAt.Format(time.RFC3339), err)
			return b.cookies, nil
		}
		return nil, err
	}
	b.cookies = cookies
	b.fetchedAt = b.now()
	return cookies, nil
}

func (b *BrowserSession) browse(ctx context.Context) ([]*http.Cookie, error) {
	b.logger.Info("[browser] Warming up session at %s (binary: %q)", b.url, b.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.userAgent),
	)
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 60*time.Second)
	defer cancelTimeout()

	var raw []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(b.url),
		chromedp.Sleep(5*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			raw, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: warm-up %s: %w", b.url, err)
	}

	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain})
	}
	b.logger.Info("[browser] Collected %d cookies", len(cookies))
	return cookies, nil
}

func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
