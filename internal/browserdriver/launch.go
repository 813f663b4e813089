package browserdriver

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Session owns the playwright process, browser, and context backing a
// Driver, so the caller has one Close to release everything. One run owns
// exactly one Session; it is never shared across runs.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// LaunchOptions configures a Session.
type LaunchOptions struct {
	Headless      bool
	TimeoutMs     float64
	ViewportWidth int
	ViewportHeight int
}

// Launch installs (if needed) and starts playwright, launches a headless
// or headed Chromium instance, and opens a single page.
func Launch(opts LaunchOptions) (*Session, error) {
	if opts.TimeoutMs == 0 {
		opts.TimeoutMs = float64(locatorTimeout.Milliseconds())
	}
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = 1366
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = 900
	}

	if err := playwright.Install(&playwright.RunOptions{Verbose: false}); err != nil {
		return nil, fmt.Errorf("browserdriver: install playwright: %w", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browserdriver: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  playwright.Float(opts.TimeoutMs),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browserdriver: launch chromium: %w", err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browserdriver: new context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browserdriver: new page: %w", err)
	}

	return &Session{pw: pw, browser: browser, context: browserContext, page: page}, nil
}

// Page returns the browserdriver.Page wrapper over the session's live
// playwright page, for building a Driver.
func (s *Session) Page() Page { return NewPlaywrightPage(s.page, float64(locatorTimeout.Milliseconds())) }

// Actor returns the ComputerActor wrapper over the session's live
// playwright page, for the planner-executor loop.
func (s *Session) Actor() ComputerActor { return &computerActor{page: s.page} }

// Close releases the browser context, browser, and playwright process, in
// that order, collecting the first error encountered.
func (s *Session) Close() error {
	var firstErr error
	if err := s.context.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
