package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/GoCodeAlone/coldfront/toolrun"
)

const maxPageText = 6000

// BrowserManager holds a shared Rod browser and a single page. The
// browser is lazily launched on first use so runs that never touch
// browser tools pay nothing.
type BrowserManager struct {
	mu       sync.Mutex
	headless bool
	browser  *rod.Browser
	page     *rod.Page
}

func NewBrowserManager(headless bool) *BrowserManager {
	return &BrowserManager{headless: headless}
}

// Page returns the shared page, launching the browser if needed.
func (m *BrowserManager) Page() (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.page != nil {
		return m.page, nil
	}
	if m.browser == nil {
		u, err := launcher.New().Headless(m.headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		b := rod.New().ControlURL(u)
		if err := b.Connect(); err != nil {
			return nil, fmt.Errorf("connect to browser: %w", err)
		}
		m.browser = b
	}
	page, err := m.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	m.page = page
	return page, nil
}

// Shutdown closes the page and browser if they were started.
func (m *BrowserManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
	if m.browser != nil {
		err := m.browser.Close()
		m.browser = nil
		return err
	}
	return nil
}

func (m *BrowserManager) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
}

// BrowserOpen navigates the shared browser page to a URL.
type BrowserOpen struct {
	Manager *BrowserManager
}

func (t *BrowserOpen) Name() string        { return "browser_open" }
func (t *BrowserOpen) Description() string { return "Open a URL in the browser" }
func (t *BrowserOpen) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "url", Desc: "URL to open"}}
}
func (t *BrowserOpen) NeedsConfirm() bool { return false }

func (t *BrowserOpen) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no URL provided")
	}
	page, err := t.Manager.Page()
	if err != nil {
		return "", err
	}
	if err := page.Navigate(args[0]); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", args[0], err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	// Page may be usable even if WaitLoad times out.
	_ = page.Context(waitCtx).WaitLoad()

	title := ""
	if res, err := page.Eval(`() => document.title`); err == nil && res != nil {
		title = res.Value.String()
	}
	return fmt.Sprintf("opened: %s (%s)", title, args[0]), nil
}

// BrowserRead extracts text from the current page, optionally scoped to
// a CSS selector.
type BrowserRead struct {
	Manager *BrowserManager
}

func (t *BrowserRead) Name() string        { return "browser_read" }
func (t *BrowserRead) Description() string { return "Read text from the current browser page" }
func (t *BrowserRead) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "selector", Desc: "CSS selector (optional, default: whole page)"}}
}
func (t *BrowserRead) NeedsConfirm() bool { return false }

func (t *BrowserRead) Execute(_ context.Context, args []string) (string, error) {
	page, err := t.Manager.Page()
	if err != nil {
		return "", err
	}
	if len(args) > 0 && args[0] != "" {
		el, err := page.Element(args[0])
		if err != nil {
			return "", fmt.Errorf("element not found: %s", args[0])
		}
		text, err := el.Text()
		if err != nil {
			return "", fmt.Errorf("read element: %w", err)
		}
		return truncate(text, maxPageText), nil
	}
	res, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return truncate(res.Value.String(), maxPageText), nil
}

// BrowserClick clicks the first element matching a CSS selector.
type BrowserClick struct {
	Manager *BrowserManager
}

func (t *BrowserClick) Name() string        { return "browser_click" }
func (t *BrowserClick) Description() string { return "Click an element on the current browser page" }
func (t *BrowserClick) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "selector", Desc: "CSS selector of the element"}}
}
func (t *BrowserClick) NeedsConfirm() bool { return false }

func (t *BrowserClick) Execute(_ context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no selector provided")
	}
	page, err := t.Manager.Page()
	if err != nil {
		return "", err
	}
	el, err := page.Element(args[0])
	if err != nil {
		return "", fmt.Errorf("element not found: %s", args[0])
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click %s: %w", args[0], err)
	}
	return fmt.Sprintf("clicked %s", args[0]), nil
}

// BrowserFill types a value into an input element.
type BrowserFill struct {
	Manager *BrowserManager
}

func (t *BrowserFill) Name() string        { return "browser_fill" }
func (t *BrowserFill) Description() string { return "Type text into an input on the current browser page" }
func (t *BrowserFill) Params() []toolrun.Param {
	return []toolrun.Param{
		{Name: "selector", Desc: "CSS selector of the input"},
		{Name: "text", Desc: "Text to type"},
	}
}
func (t *BrowserFill) NeedsConfirm() bool { return false }

func (t *BrowserFill) Execute(_ context.Context, args []string) (string, error) {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		return "", fmt.Errorf("selector and text are required")
	}
	page, err := t.Manager.Page()
	if err != nil {
		return "", err
	}
	el, err := page.Element(args[0])
	if err != nil {
		return "", fmt.Errorf("element not found: %s", args[0])
	}
	if err := el.Input(args[1]); err != nil {
		return "", fmt.Errorf("fill %s: %w", args[0], err)
	}
	return fmt.Sprintf("typed into %s", args[0]), nil
}

// BrowserScreenshot captures the current page to a PNG in the
// workspace.
type BrowserScreenshot struct {
	Manager   *BrowserManager
	Workspace string
}

func (t *BrowserScreenshot) Name() string        { return "browser_screenshot" }
func (t *BrowserScreenshot) Description() string { return "Screenshot the current browser page" }
func (t *BrowserScreenshot) Params() []toolrun.Param {
	return nil
}
func (t *BrowserScreenshot) NeedsConfirm() bool { return false }

func (t *BrowserScreenshot) Execute(_ context.Context, _ []string) (string, error) {
	page, err := t.Manager.Page()
	if err != nil {
		return "", err
	}
	png, err := page.Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	name := fmt.Sprintf("screenshot-%d.png", time.Now().Unix())
	path, err := validatePath(t.Workspace, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	return fmt.Sprintf("screenshot saved: %s", name), nil
}

// BrowserClose closes the current page; the next browser tool call
// opens a fresh one.
type BrowserClose struct {
	Manager *BrowserManager
}

func (t *BrowserClose) Name() string            { return "browser_close" }
func (t *BrowserClose) Description() string     { return "Close the browser page" }
func (t *BrowserClose) Params() []toolrun.Param { return nil }
func (t *BrowserClose) NeedsConfirm() bool      { return false }

func (t *BrowserClose) Execute(_ context.Context, _ []string) (string, error) {
	t.Manager.close()
	return "browser closed", nil
}
