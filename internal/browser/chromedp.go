package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/form-autopilot/internal/config"
)

// ChromeDriver launches headless Chrome sessions via chromedp
type ChromeDriver struct {
	cfg config.BrowserConfig
}

// NewChromeDriver creates a chromedp-backed driver
func NewChromeDriver(cfg config.BrowserConfig) *ChromeDriver {
	return &ChromeDriver{cfg: cfg}
}

// NewSession launches a fresh browser process with its own profile. The
// caller must Close the session on every exit path.
func (d *ChromeDriver) NewSession(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	// Start the browser process up front so launch failures surface here
	// rather than on the first navigation.
	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &chromeSession{
		ctx:         taskCtx,
		taskCancel:  taskCancel,
		allocCancel: allocCancel,
	}, nil
}

// chromeSession wraps one chromedp tab context
type chromeSession struct {
	ctx         context.Context
	taskCancel  context.CancelFunc
	allocCancel context.CancelFunc
	closed      bool
}

func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	// Honor the caller's deadline/cancellation on top of the session context.
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitReady(ctx context.Context, timeout time.Duration) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *chromeSession) Evaluate(ctx context.Context, expression string, out interface{}) error {
	return s.run(ctx, chromedp.Evaluate(expression, out))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	)
}

func (s *chromeSession) Check(ctx context.Context, selector string) error {
	// Click would toggle an already-checked box, so set the property directly.
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		if (!el.checked) {
			el.checked = true;
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}
		return true;
	})()`, selector)

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %s", selector)
	}
	return nil
}

func (s *chromeSession) SelectOption(ctx context.Context, selector, value string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const option = Array.from(el.options).find(o => o.value === %q);
		if (!option) return false;
		el.value = option.value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector, value)

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no option with value %q in %s", value, selector)
	}
	return nil
}

func (s *chromeSession) SelectOptionByText(ctx context.Context, selector, text string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const option = Array.from(el.options).find(o => o.textContent.trim() === %q);
		if (!option) return false;
		el.value = option.value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector, text)

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no option with text %q in %s", text, selector)
	}
	return nil
}

func (s *chromeSession) SetFiles(ctx context.Context, selector string, paths []string) error {
	return s.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

func (s *chromeSession) Count(ctx context.Context, selector string) (int, error) {
	expr := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)

	var count int
	if err := s.run(ctx, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *chromeSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

func (s *chromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.taskCancel()
	s.allocCancel()
	return nil
}
