package browserdriver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/errs"
)

// ErrLoginRequired is the underlying cause of Open's error when no
// credentials are configured and the session is not already authenticated.
// Callers distinguish this from any other browser failure via errors.Is.
var ErrLoginRequired = errors.New("login_required: no credentials configured")

// Credentials, when non-zero, enables the scripted login flow.
type Credentials struct {
	Username string
	Password string
}

// Driver implements BrowserDriver's operation contract over a Page. It is
// constructed with NewWithPage, over either a Session's playwright-backed
// Page or a fake Page in tests.
type Driver struct {
	page    Page
	profile SiteProfile
	creds   Credentials

	// cachedProfileText holds the last read_profile_text result, cleared on
	// open, open_next_profile, and skip per the caching rule: it must never
	// leak text from a previous profile into the current one.
	cachedProfileText string
	cacheValid        bool
}

// NewWithPage builds a Driver over an arbitrary Page implementation (real
// or fake), used by tests and by the CLI with Session.Page().
func NewWithPage(page Page, profile SiteProfile, creds Credentials) *Driver {
	return &Driver{page: page, profile: profile, creds: creds}
}

// Open navigates to url and ensures a logged-in session, performing a
// scripted login if credentials are configured and the session isn't
// already authenticated. Clears the profile-text cache.
func (d *Driver) Open(url string) error {
	d.clearCache()

	if err := d.page.Goto(url); err != nil {
		return errs.New(errs.KindBrowser, "open", fmt.Errorf("navigate to %s: %w", url, err))
	}

	if _, loggedIn := d.page.Locate(d.profile.LoggedInSelector); loggedIn {
		return nil
	}

	if d.creds.Username == "" || d.creds.Password == "" {
		return errs.New(errs.KindBrowser, "open", ErrLoginRequired)
	}

	return d.login()
}

func (d *Driver) login() error {
	if err := d.page.Goto(d.profile.LoginURL); err != nil {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("navigate to login page: %w", err))
	}

	userField, ok := d.page.Locate(d.profile.LoginUsernameSelector)
	if !ok {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("username field not found"))
	}
	if err := userField.Fill(d.creds.Username); err != nil {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("fill username: %w", err))
	}

	passField, ok := d.page.Locate(d.profile.LoginPasswordSelector)
	if !ok {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("password field not found"))
	}
	if err := passField.Fill(d.creds.Password); err != nil {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("fill password: %w", err))
	}

	submit, ok := d.page.Locate(d.profile.LoginSubmitSelector)
	if !ok {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("login submit control not found"))
	}
	if err := submit.Click(); err != nil {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("submit login: %w", err))
	}

	if _, loggedIn := d.page.Locate(d.profile.LoggedInSelector); !loggedIn {
		return errs.New(errs.KindBrowser, "login", fmt.Errorf("login_required: logged-in signal absent after scripted login"))
	}
	return nil
}

// OpenNextProfile opens the next unseen profile card, returning false when
// no more profiles are available. Handles an "already on a profile"
// landing page by treating a currently-visible card as already open.
// Clears the profile-text cache.
func (d *Driver) OpenNextProfile() (bool, error) {
	d.clearCache()

	if _, onCard := d.page.Locate(d.profile.ProfileCardSelector); onCard {
		return true, nil
	}

	next, ok := d.page.Locate(d.profile.NextProfileSelector)
	if !ok {
		return false, nil
	}
	if err := next.Click(); err != nil {
		return false, errs.New(errs.KindBrowser, "open_next_profile", fmt.Errorf("advance listing: %w", err))
	}

	_, onCard := d.page.Locate(d.profile.ProfileCardSelector)
	return onCard, nil
}

// ReadProfileText returns the full profile text from the DOM, scoped to
// the expanded card body so it reflects the entire card rather than only
// what the viewport currently shows. Caches the result until the next
// open/open_next_profile/skip.
func (d *Driver) ReadProfileText() (string, error) {
	if d.cacheValid {
		return d.cachedProfileText, nil
	}

	text, err := d.page.TextContent(d.profile.ProfileTextSelector)
	if err != nil {
		return "", errs.New(errs.KindBrowser, "read_profile_text", fmt.Errorf("extract profile text: %w", err))
	}

	d.cachedProfileText = text
	d.cacheValid = true
	return text, nil
}

// FocusInput gives keyboard focus to the reply widget, trying the
// placeholder-text heuristic first and a generic textarea fallback second.
func (d *Driver) FocusInput() error {
	if loc, ok := d.page.Locate(placeholderSelector(d.profile.ReplyInputPlaceholder)); ok {
		return wrapFocus(loc.Focus())
	}
	if loc, ok := d.page.Locate(d.profile.ReplyInputFallbackSelector); ok {
		return wrapFocus(loc.Focus())
	}
	return errs.New(errs.KindBrowser, "focus_input", fmt.Errorf("no reply input found by placeholder or fallback selector"))
}

func wrapFocus(err error) error {
	if err != nil {
		return errs.New(errs.KindBrowser, "focus_input", fmt.Errorf("focus reply input: %w", err))
	}
	return nil
}

func placeholderSelector(placeholder string) string {
	return fmt.Sprintf("[placeholder=%q]", placeholder)
}

// Fill clears the focused widget and types text. Clearing happens by
// filling an empty string first, matching how Playwright's Fill replaces
// an input's value rather than appending to it.
func (d *Driver) Fill(text string) error {
	loc, ok := d.currentInput()
	if !ok {
		return errs.New(errs.KindBrowser, "fill", fmt.Errorf("no focused reply input to fill"))
	}
	if err := loc.Fill(""); err != nil {
		return errs.New(errs.KindBrowser, "fill", fmt.Errorf("clear reply input: %w", err))
	}
	if err := loc.Fill(text); err != nil {
		return errs.New(errs.KindBrowser, "fill", fmt.Errorf("fill reply input: %w", err))
	}
	return nil
}

func (d *Driver) currentInput() (Locator, bool) {
	if loc, ok := d.page.Locate(placeholderSelector(d.profile.ReplyInputPlaceholder)); ok {
		return loc, true
	}
	return d.page.Locate(d.profile.ReplyInputFallbackSelector)
}

// Submit clicks the reply submit control, identified by its localized
// label with configured fallback labels, then a generic submit-type
// selector, and finally falls back to pressing Enter in the focused input.
func (d *Driver) Submit() error {
	labels := append([]string{d.profile.SubmitLabel}, d.profile.SubmitFallbackLabels...)
	for _, label := range labels {
		if label == "" {
			continue
		}
		if loc, ok := d.page.Locate(labelSelector(label)); ok {
			if err := loc.Click(); err != nil {
				return errs.New(errs.KindBrowser, "submit", fmt.Errorf("click submit control %q: %w", label, err))
			}
			return nil
		}
	}

	if d.profile.SubmitButtonSelector != "" {
		if loc, ok := d.page.Locate(d.profile.SubmitButtonSelector); ok {
			if err := loc.Click(); err != nil {
				return errs.New(errs.KindBrowser, "submit", fmt.Errorf("click submit selector: %w", err))
			}
			return nil
		}
	}

	if err := d.page.PressKey("Enter"); err != nil {
		return errs.New(errs.KindBrowser, "submit", fmt.Errorf("press Enter fallback: %w", err))
	}
	return nil
}

func labelSelector(label string) string {
	return fmt.Sprintf("text=%q", label)
}

// VerifySent confirms a send via a post-send DOM marker or a URL change.
func (d *Driver) VerifySent() bool {
	if d.profile.SentMarkerSelector != "" {
		if loc, ok := d.page.Locate(d.profile.SentMarkerSelector); ok && loc.IsVisible() {
			return true
		}
	}
	if d.profile.SentURLContains != "" && strings.Contains(d.page.URL(), d.profile.SentURLContains) {
		return true
	}
	return false
}

// Skip dismisses the current card so open_next_profile advances. Clears
// the profile-text cache.
func (d *Driver) Skip() error {
	d.clearCache()

	selector := d.profile.SkipSelector
	if selector == "" {
		selector = d.profile.NextProfileSelector
	}
	if selector == "" {
		return nil
	}
	loc, ok := d.page.Locate(selector)
	if !ok {
		return nil
	}
	if err := loc.Click(); err != nil {
		return errs.New(errs.KindBrowser, "skip", fmt.Errorf("dismiss card: %w", err))
	}
	return nil
}

// Close releases browser resources.
func (d *Driver) Close() error {
	if err := d.page.Close(); err != nil {
		return errs.New(errs.KindBrowser, "close", err)
	}
	return nil
}

func (d *Driver) clearCache() {
	d.cachedProfileText = ""
	d.cacheValid = false
}

// locatorTimeout bounds how long a single browser operation waits for its
// selector before failing.
const locatorTimeout = 15 * time.Second

// verifyWindow is the bounded pause SendStep allows between submit and the
// first verify_sent check, giving the target page time to react.
const verifyWindow = 5 * time.Second

// WaitWindow exposes verifyWindow to the coordinator's SendStep so the
// bounded post-submit wait lives in one place.
func WaitWindow() time.Duration { return verifyWindow }
