package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// RodOptions configures the headless browser behind RodEngine.
type RodOptions struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	// MaxPages caps concurrent tabs.
	MaxPages int
	// BlockedResourceTypes lists resource types that are never downloaded.
	BlockedResourceTypes []string
}

// RodEngine renders pages in headless Chrome. It is used for product pages
// whose ranking table is filled in by JavaScript.
// It is safe for concurrent use.
type RodEngine struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	opts        RodOptions
	activePages atomic.Int32
}

// NewRodEngine launches a browser and initialises the reusable page pool.
func NewRodEngine(opts RodOptions) (*RodEngine, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 4
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)
	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("rod_engine: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("rod_engine: connect browser: %w", err)
	}

	return &RodEngine{
		browser:  browser,
		pagePool: rod.NewPagePool(opts.MaxPages),
		opts:     opts,
	}, nil
}

func (e *RodEngine) Name() string { return "browser" }

// Fetch navigates a pooled tab to req.URL and returns the rendered HTML.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	e.activePages.Add(1)
	defer e.activePages.Add(-1)

	page, err := e.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, fmt.Errorf("rod_engine: acquire page: %w", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}
	if err := applyHeaders(page, req.Headers); err != nil {
		return nil, fmt.Errorf("rod_engine: set headers: %w", err)
	}

	router := setupBlocking(page, e.opts.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("rod_engine: navigate: %w", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rod_engine: wait: %w", ctx.Err())
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// The navigation entry is the only status source that does not need
	// a Network domain listener.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}
	if statusCode != 0 && (statusCode < 200 || statusCode > 299) {
		return nil, &StatusError{StatusCode: statusCode, URL: req.URL}
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("rod_engine: read html: %w", err)
	}
	if len(rawHTML) > maxBody {
		return nil, fmt.Errorf("rod_engine: %w", ErrBodyTooLarge)
	}

	finalURL := req.URL
	if res, evalErr := p.Eval(`() => window.location.href`); evalErr == nil && res.Value.Str() != "" {
		finalURL = res.Value.Str()
	}
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	return &FetchResult{
		Body:        []byte(rawHTML),
		ContentType: "text/html; charset=utf-8",
		StatusCode:  statusCode,
		FinalURL:    finalURL,
		EngineName:  e.Name(),
	}, nil
}

// Close drains the page pool and kills the browser process.
func (e *RodEngine) Close() {
	slog.Info("browser engine shutting down", "activePages", e.activePages.Load())
	e.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	e.browser.MustClose()
}

// applyHeaders sends the User-Agent through the emulation override and every
// other header as an extra request header.
func applyHeaders(page *rod.Page, headers map[string]string) error {
	extra := make(map[string]string, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, "User-Agent") {
			if err := (proto.NetworkSetUserAgentOverride{UserAgent: v}).Call(page); err != nil {
				return err
			}
			continue
		}
		extra[k] = v
	}
	if len(extra) == 0 {
		return nil
	}
	return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extra)}.Call(page)
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
