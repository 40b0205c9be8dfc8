package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/root4loot/goutils/log"
)

// ChromedpScreener captures screenshots with chromedp. Like Screener it spawns
// one browser per capture.
type ChromedpScreener struct {
	CaptureOptions CaptureOptions
}

// Capture navigates to captureURL in a fresh browser and returns the
// screenshot. Cancelling the allocator context kills the browser process.
func (s *ChromedpScreener) Capture(ctx context.Context, captureURL string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("browser panic while capturing %s: %v", captureURL, r)
		}
	}()

	log.Debugf("Attempting capture on %s", captureURL)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], s.customFlags()...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	cctx, cancelContext := chromedp.NewContext(allocCtx)
	defer cancelContext()

	// Start the browser before the navigation deadline applies.
	if err := chromedp.Run(cctx); err != nil {
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	var tasks chromedp.Tasks
	if s.CaptureOptions.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(s.CaptureOptions.UserAgent))
	}
	if s.CaptureOptions.CaptureWidth != 0 && s.CaptureOptions.CaptureHeight != 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(s.CaptureOptions.CaptureWidth), int64(s.CaptureOptions.CaptureHeight)))
	}
	tasks = append(tasks, chromedp.Navigate(captureURL))

	timeout := time.Duration(s.CaptureOptions.Timeout) * time.Second
	navCtx, cancel := context.WithTimeout(cctx, timeout)
	defer cancel()

	if err := chromedp.Run(navCtx, tasks); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out after %v: %w", captureURL, timeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("error navigating to %s: %w", captureURL, err)
	}

	result = &Result{TargetURL: captureURL}

	var image []byte
	var capture chromedp.Action = chromedp.CaptureScreenshot(&image)
	if s.CaptureOptions.CaptureFull {
		capture = chromedp.FullScreenshot(&image, 100)
	}

	err = chromedp.Run(cctx,
		chromedp.Sleep(time.Duration(s.CaptureOptions.DelayBeforeCapture)*time.Second),
		chromedp.Location(&result.LandingURL),
		capture,
	)
	if err != nil {
		return nil, fmt.Errorf("error capturing screenshot for %s: %w", captureURL, err)
	}

	result.Image = image
	return result, nil
}

// customFlags returns chromedp.ExecAllocatorOptions based on the CaptureOptions.
func (s *ChromedpScreener) customFlags() []chromedp.ExecAllocatorOption {
	customFlags := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.Flag("headless", s.CaptureOptions.Headless),
	}

	if s.CaptureOptions.UserAgent != "" {
		customFlags = append(customFlags, chromedp.UserAgent(s.CaptureOptions.UserAgent))
	}

	if !s.CaptureOptions.RespectCertificateErrors {
		customFlags = append(customFlags, chromedp.IgnoreCertErrors)
	}

	if !s.CaptureOptions.UseHTTP2 {
		customFlags = append(customFlags, chromedp.Flag("disable-http2", true))
	}

	return customFlags
}
