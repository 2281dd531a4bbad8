// Package pdf rasterizes populated HTML into paginated PDF bytes using a
// headless Chrome session (go-rod). A session is a scoped, single-use
// resource: acquired per render and released on every exit path.
package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Renderer turns HTML into PDF bytes. The concrete implementation drives a
// browser; tests substitute fakes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Config controls page geometry and browser behavior.
type Config struct {
	// SettleTimeout bounds how long a page may take to finish loading and go
	// network-idle before the render is declared failed.
	SettleTimeout time.Duration
	// BrowserBin optionally points at a Chrome/Chromium binary; when empty,
	// rod resolves (and if needed downloads) a managed browser.
	BrowserBin string
	// NoSandbox disables the Chrome sandbox, required in most containers.
	NoSandbox bool
}

// DefaultConfig matches the reference rendering behavior: US Letter with
// half-inch margins and a 30 second settle budget.
func DefaultConfig() Config {
	return Config{SettleTimeout: 30 * time.Second}
}

// US Letter in inches.
const (
	paperWidthIn  = 8.5
	paperHeightIn = 11.0
	marginIn      = 0.5
)

// ChromeRenderer renders via a fresh headless-Chrome process per call.
// Sessions are deliberately not pooled; concurrent renders each pay for their
// own browser, matching the reference behavior.
type ChromeRenderer struct {
	cfg Config
}

func NewChromeRenderer(cfg Config) *ChromeRenderer {
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = DefaultConfig().SettleTimeout
	}
	return &ChromeRenderer{cfg: cfg}
}

// Render loads the HTML into a fresh page, waits for it to settle, and prints
// it to PDF with background graphics enabled (the cover-sheet templates rely
// on background-colored elements for structure). All-or-nothing: on any
// failure no partial document is returned.
func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	l := launcher.New().Headless(true).NoSandbox(r.cfg.NoSandbox)
	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("pdf: launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("pdf: connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("pdf: open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Timeout(r.cfg.SettleTimeout)
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("pdf: load document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("pdf: page did not settle within %s: %w", r.cfg.SettleTimeout, err)
	}
	if err := page.WaitIdle(r.cfg.SettleTimeout); err != nil {
		return nil, fmt.Errorf("pdf: page did not go idle within %s: %w", r.cfg.SettleTimeout, err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(paperWidthIn),
		PaperHeight:     float64Ptr(paperHeightIn),
		MarginTop:       float64Ptr(marginIn),
		MarginBottom:    float64Ptr(marginIn),
		MarginLeft:      float64Ptr(marginIn),
		MarginRight:     float64Ptr(marginIn),
	})
	if err != nil {
		return nil, fmt.Errorf("pdf: print: %w", err)
	}
	buf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("pdf: read stream: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("pdf: empty document")
	}
	return buf, nil
}

func float64Ptr(v float64) *float64 { return &v }
