package browserdriver

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// playwrightPage adapts a real playwright.Page to the Page interface.
type playwrightPage struct {
	page    playwright.Page
	timeout float64 // milliseconds, passed to WaitForSelector calls
}

// NewPlaywrightPage wraps a live playwright.Page for production use.
func NewPlaywrightPage(page playwright.Page, timeoutMs float64) Page {
	return &playwrightPage{page: page, timeout: timeoutMs}
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) Locate(selector string) (Locator, bool) {
	loc := p.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(p.timeout),
	}); err != nil {
		return nil, false
	}
	return &playwrightLocator{loc: loc}, true
}

func (p *playwrightPage) TextContent(selector string) (string, error) {
	if selector == "" {
		return p.page.TextContent("body")
	}
	return p.page.TextContent(selector)
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
}

func (p *playwrightPage) PressKey(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type playwrightLocator struct {
	loc playwright.Locator
}

func (l *playwrightLocator) Click() error { return l.loc.Click() }
func (l *playwrightLocator) Fill(text string) error {
	return l.loc.Fill(text)
}
func (l *playwrightLocator) Focus() error { return l.loc.Focus() }
func (l *playwrightLocator) IsVisible() bool {
	visible, err := l.loc.IsVisible()
	if err != nil {
		return false
	}
	return visible
}

// computerActor adapts a playwright.Page to ComputerActor for the
// planner-executor loop's raw x/y action execution.
type computerActor struct {
	page playwright.Page
}

func (c *computerActor) Click(x, y int) error {
	return c.page.Mouse().Click(float64(x), float64(y))
}

func (c *computerActor) Type(text string) error {
	return c.page.Keyboard().Type(text)
}

func (c *computerActor) Key(key string) error {
	return c.page.Keyboard().Press(key)
}

func (c *computerActor) Scroll(dx, dy int) error {
	_, err := c.page.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy))
	return err
}
