package browserdriver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeLocator and fakePage exercise the Driver's operation contract without
// a real browser, per the design note that both the fixed-selector and
// planner-executor implementations must satisfy the same contract and be
// testable against it.
type fakeLocator struct {
	onClick   func() error
	onFill    func(string) error
	visible   bool
	focused   bool
	fillCalls []string
}

func (l *fakeLocator) Click() error {
	if l.onClick != nil {
		return l.onClick()
	}
	return nil
}
func (l *fakeLocator) Fill(text string) error {
	l.fillCalls = append(l.fillCalls, text)
	if l.onFill != nil {
		return l.onFill(text)
	}
	return nil
}
func (l *fakeLocator) Focus() error     { l.focused = true; return nil }
func (l *fakeLocator) IsVisible() bool  { return l.visible }

type fakePage struct {
	url         string
	locators    map[string]*fakeLocator
	texts       map[string]string
	pressedKeys []string
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{locators: map[string]*fakeLocator{}, texts: map[string]string{}}
}

func (p *fakePage) Goto(url string) error { p.url = url; return nil }
func (p *fakePage) URL() string           { return p.url }
func (p *fakePage) Locate(selector string) (Locator, bool) {
	loc, ok := p.locators[selector]
	return loc, ok
}
func (p *fakePage) TextContent(selector string) (string, error) { return p.texts[selector], nil }
func (p *fakePage) Screenshot() ([]byte, error)                 { return []byte("png"), nil }
func (p *fakePage) PressKey(key string) error                   { p.pressedKeys = append(p.pressedKeys, key); return nil }
func (p *fakePage) Close() error                                { p.closed = true; return nil }

func testProfile() SiteProfile {
	return SiteProfile{
		LoggedInSelector:           "logged-in",
		ProfileCardSelector:        "profile-card",
		NextProfileSelector:        "next-profile",
		ProfileTextSelector:        "profile-body",
		ReplyInputPlaceholder:      "Write a message",
		ReplyInputFallbackSelector: "textarea",
		SubmitLabel:                "Invite to connect",
		SentMarkerSelector:         "sent-marker",
		SkipSelector:               "skip",
	}
}

func TestOpenRequiresLoginWhenNoCredentials(t *testing.T) {
	page := newFakePage()
	d := NewWithPage(page, testProfile(), Credentials{})

	err := d.Open("https://example.test/listing")
	require.Error(t, err)
	require.Equal(t, "https://example.test/listing", page.url)
}

func TestOpenSucceedsWhenAlreadyLoggedIn(t *testing.T) {
	page := newFakePage()
	page.locators["logged-in"] = &fakeLocator{}
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.Open("https://example.test/listing"))
}

func TestReadProfileTextCachedUntilCleared(t *testing.T) {
	page := newFakePage()
	page.texts["profile-body"] = "Alice, ML engineer"
	d := NewWithPage(page, testProfile(), Credentials{})

	text, err := d.ReadProfileText()
	require.NoError(t, err)
	require.Equal(t, "Alice, ML engineer", text)

	// Changing the underlying page text must not change the cached read
	// until the cache is invalidated by open/open_next_profile/skip.
	page.texts["profile-body"] = "Bob, different profile"
	text, err = d.ReadProfileText()
	require.NoError(t, err)
	require.Equal(t, "Alice, ML engineer", text)

	require.NoError(t, d.Skip())
	text, err = d.ReadProfileText()
	require.NoError(t, err)
	require.Equal(t, "Bob, different profile", text)
}

func TestOpenNextProfileHandlesAlreadyOnCard(t *testing.T) {
	page := newFakePage()
	page.locators["profile-card"] = &fakeLocator{}
	d := NewWithPage(page, testProfile(), Credentials{})

	ok, err := d.OpenNextProfile()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpenNextProfileReturnsFalseWhenExhausted(t *testing.T) {
	page := newFakePage()
	d := NewWithPage(page, testProfile(), Credentials{})

	ok, err := d.OpenNextProfile()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFocusInputPrefersPlaceholderOverFallback(t *testing.T) {
	page := newFakePage()
	placeholderLoc := &fakeLocator{}
	fallbackLoc := &fakeLocator{}
	page.locators[placeholderSelector("Write a message")] = placeholderLoc
	page.locators["textarea"] = fallbackLoc
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.FocusInput())
	require.True(t, placeholderLoc.focused)
	require.False(t, fallbackLoc.focused)
}

func TestFillClearsThenTypes(t *testing.T) {
	page := newFakePage()
	loc := &fakeLocator{}
	page.locators["textarea"] = loc
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.Fill("hello there"))
	require.Equal(t, []string{"", "hello there"}, loc.fillCalls)
}

func TestSubmitFallsBackToEnterWhenNoControlFound(t *testing.T) {
	page := newFakePage()
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.Submit())
	require.Equal(t, []string{"Enter"}, page.pressedKeys)
}

func TestSubmitPrefersLocalizedLabel(t *testing.T) {
	page := newFakePage()
	clicked := false
	page.locators[labelSelector("Invite to connect")] = &fakeLocator{onClick: func() error {
		clicked = true
		return nil
	}}
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.Submit())
	require.True(t, clicked)
	require.Empty(t, page.pressedKeys)
}

func TestVerifySentByMarker(t *testing.T) {
	page := newFakePage()
	d := NewWithPage(page, testProfile(), Credentials{})

	require.False(t, d.VerifySent())

	page.locators["sent-marker"] = &fakeLocator{visible: true}
	require.True(t, d.VerifySent())
}

func TestCloseReleasesPage(t *testing.T) {
	page := newFakePage()
	d := NewWithPage(page, testProfile(), Credentials{})

	require.NoError(t, d.Close())
	require.True(t, page.closed)
}
