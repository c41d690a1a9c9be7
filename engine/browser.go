package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
)

// BrowserEngine fetches pages through a headless browser so the portal's
// asynchronously rendered listing table is present in the returned markup.
//
// The crawl is strictly sequential, so the engine keeps a single reusable
// tab instead of a pool. The browser launches lazily on the first fetch;
// runs where every page renders server-side never pay the launch cost.
type BrowserEngine struct {
	cfg       config.Browser
	tableWait time.Duration

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

// NewBrowserEngine creates a BrowserEngine. tableWait bounds how long a
// fetch waits for the listing table to appear before returning the page
// as-is (a rendered page without a table is a valid no-results page).
func NewBrowserEngine(cfg config.Browser, tableWait time.Duration) *BrowserEngine {
	return &BrowserEngine{cfg: cfg, tableWait: tableWait}
}

func (e *BrowserEngine) Name() string { return "browser" }

// ensurePage launches the browser and prepares the reusable tab on first use.
func (e *BrowserEngine) ensurePage() (*rod.Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page != nil {
		return e.page, nil
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)

	if e.cfg.Bin != "" {
		l = l.Bin(e.cfg.Bin)
	}
	if e.cfg.Proxy != "" {
		l = l.Proxy(e.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	// Mask navigator.webdriver etc. before any navigation.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	headerErr := proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "de-AT,de;q=0.9,en;q=0.8",
		}),
	}.Call(page)
	if headerErr != nil {
		slog.Warn("header injection failed, proceeding with browser defaults", "error", headerErr)
	}

	e.browser = browser
	e.page = page
	return page, nil
}

// Fetch navigates the reusable tab to the page URL, waits for the listing
// table to render, and returns the rendered markup.
func (e *BrowserEngine) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	page, err := e.ensurePage()
	if err != nil {
		return nil, err
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(pageURL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to listing page failed")
	}

	// Polling-until-ready contract: the table populates after the initial
	// load, so block on its appearance rather than a fixed sleep. A page
	// that never grows a table is returned as-is — the extractor treats
	// it as a no-results page.
	if _, waitErr := p.Timeout(e.tableWait).Element("table"); waitErr != nil {
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "wait for listing table")
		}
		slog.Debug("listing table did not appear", "url", pageURL, "error", waitErr)
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	return &Result{
		HTML:       rawHTML,
		EngineName: e.Name(),
	}, nil
}

// Close kills the browser process. Call on shutdown to prevent zombie
// Chrome processes. Safe to call when the browser never launched.
func (e *BrowserEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser == nil {
		return
	}
	slog.Info("browser engine shutting down")
	_ = e.page.Close()
	e.browser.MustClose()
	e.browser = nil
	e.page = nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed CrawlErrors so the fetcher
// can tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeFetchTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeFetchTimeout, "fetch canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeTransientFetch, msg, err)
	}
}
