// Package browserdriver implements the BrowserDriver: it drives a single
// live browser session through the listing/profile/reply workflow described
// in the outreach autopilot design, exposing exactly the operation contract
// the coordinator depends on (open, open_next_profile, read_profile_text,
// focus_input, fill, submit, verify_sent, skip, close).
//
// The live page is reached through the narrow Page interface below so the
// driver's control flow (caching, login handling, submit/verify/retry) can
// be tested against a fake page instead of a real browser: both the
// fixed-selector mode and the planner-executor mode satisfy the same
// operation contract, and tests exercise the contract, not either
// implementation.
package browserdriver

// Page is the subset of playwright.Page this driver needs. Production code
// satisfies it with a thin adapter over a real playwright.Page (see
// playwrightPage in playwright_page.go); tests satisfy it with fakePage.
type Page interface {
	Goto(url string) error
	URL() string

	// Locate returns the first element matching selector, or ok=false if
	// none is visible within the driver's default wait window.
	Locate(selector string) (Locator, bool)

	// TextContent returns the full text content of selector ("" for the
	// whole document body), not limited to what is currently scrolled into
	// the viewport.
	TextContent(selector string) (string, error)

	Screenshot() ([]byte, error)
	PressKey(key string) error

	Close() error
}

// Locator is the subset of playwright.Locator this driver needs.
type Locator interface {
	Click() error
	Fill(text string) error
	Focus() error
	IsVisible() bool
}

// ComputerActor executes a single computer-use action returned by the
// planner's provider call, used only by the planner-executor loop.
type ComputerActor interface {
	Click(x, y int) error
	Type(text string) error
	Key(key string) error
	Scroll(dx, dy int) error
}
