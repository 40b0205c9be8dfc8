package screener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
)

const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/28.0.1464.0 Safari/537.36"
)

// ErrEmptyImage is returned when a result without image data is saved.
var ErrEmptyImage = errors.New("screenshot is empty")

// Capturer renders a URL in a browser and returns the screenshot.
type Capturer interface {
	Capture(ctx context.Context, captureURL string) (*Result, error)
}

// Result contains the result of a screenshot capture.
type Result struct {
	TargetURL  string
	LandingURL string
	Image      Image
}

type Image []byte

// CaptureOptions contains the options for capturing screenshots.
type CaptureOptions struct {
	Engine                   string `yaml:"engine" validate:"oneof=rod chromedp"`  // Browser driver: rod or chromedp
	CaptureHeight            int    `yaml:"capture_height" validate:"gte=0"`       // Height of the capture
	CaptureWidth             int    `yaml:"capture_width" validate:"gte=0"`        // Width of the capture
	CaptureFull              bool   `yaml:"capture_full"`                          // Take a full-page screenshot
	Timeout                  int    `yaml:"timeout" validate:"min=1"`              // Navigation timeout (seconds)
	DelayBeforeCapture       int    `yaml:"delay_before_capture" validate:"gte=0"` // Delay before capture (seconds)
	RespectCertificateErrors bool   `yaml:"-"`                                     // Respect certificate errors
	UseHTTP2                 bool   `yaml:"use_http2"`                             // Use HTTP2
	UserAgent                string `yaml:"user_agent"`                            // User agent
	Headless                 bool   `yaml:"headless"`                              // Run the browser headless
}

// NewOptions returns CaptureOptions initialized with default values.
func NewOptions() CaptureOptions {
	return CaptureOptions{
		Engine:        EngineRod,
		CaptureHeight: 768,
		CaptureWidth:  1366,
		CaptureFull:   true,
		Timeout:       20,
		UserAgent:     DefaultUserAgent,
		Headless:      true,
	}
}

// New returns the Capturer for options.Engine. Unknown engines fall back to rod.
func New(options CaptureOptions) Capturer {
	if options.Timeout <= 0 {
		options.Timeout = NewOptions().Timeout
	}

	switch options.Engine {
	case EngineChromedp:
		return &ChromedpScreener{CaptureOptions: options}
	default:
		return &Screener{CaptureOptions: options}
	}
}

// Screener captures screenshots with go-rod. Every capture launches and tears
// down its own browser process.
type Screener struct {
	CaptureOptions CaptureOptions
}

// Capture launches an isolated browser, navigates to captureURL within the
// navigation timeout and returns the screenshot. The browser is closed on every
// path, including panics raised by the driver.
func (s *Screener) Capture(ctx context.Context, captureURL string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("browser panic while capturing %s: %v", captureURL, r)
		}
	}()

	log.Debugf("Attempting capture on %s", captureURL)

	l := s.launcher().Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("error launching browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("error connecting to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("error opening page: %w", err)
	}

	if s.CaptureOptions.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.CaptureOptions.UserAgent}); err != nil {
			return nil, fmt.Errorf("error setting user agent: %w", err)
		}
	}

	if s.CaptureOptions.CaptureWidth != 0 && s.CaptureOptions.CaptureHeight != 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             s.CaptureOptions.CaptureWidth,
			Height:            s.CaptureOptions.CaptureHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}

		if err := page.SetViewport(viewport); err != nil {
			return nil, fmt.Errorf("error setting viewport: %w", err)
		}
	}

	timeout := time.Duration(s.CaptureOptions.Timeout) * time.Second
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(captureURL); err != nil {
		return nil, fmt.Errorf("error navigating to %s: %w", captureURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%s timed out after %v: %w", captureURL, timeout, err)
	}

	if s.CaptureOptions.DelayBeforeCapture > 0 {
		time.Sleep(time.Duration(s.CaptureOptions.DelayBeforeCapture) * time.Second)
	}

	result = &Result{TargetURL: captureURL, LandingURL: captureURL}
	if info, err := page.Info(); err == nil {
		result.LandingURL = info.URL
	}

	result.Image, err = page.Screenshot(s.CaptureOptions.CaptureFull, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("error capturing screenshot for %s: %w", captureURL, err)
	}

	return result, nil
}

func (s *Screener) launcher() *launcher.Launcher {
	l := launcher.New().
		Headless(s.CaptureOptions.Headless).
		NoSandbox(true)

	if path, found := launcher.LookPath(); found {
		l = l.Bin(path)
	}

	if s.CaptureOptions.UserAgent != "" {
		l = l.Set("user-agent", s.CaptureOptions.UserAgent)
	}

	if !s.CaptureOptions.RespectCertificateErrors {
		l = l.Set("ignore-certificate-errors", "true")
	}

	if !s.CaptureOptions.UseHTTP2 {
		l = l.Set("disable-http2", "true")
	}

	return l
}

// OutputPath returns the file a screenshot of rawURL is written to:
// <folder>/<authority>.png. URLs sharing an authority share a file.
func OutputPath(folder, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}

	return filepath.Join(folder, u.Host+".png"), nil
}

// SaveImageToFolder writes the image to OutputPath(folder, TargetURL),
// replacing any existing file.
func (result Result) SaveImageToFolder(folder string) (filename string, err error) {
	if len(result.Image) == 0 {
		return "", ErrEmptyImage
	}

	filename, err = OutputPath(folder, result.TargetURL)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(folder, os.ModePerm); err != nil {
		return "", err
	}

	if err = os.WriteFile(filename, result.Image, 0o644); err != nil {
		return "", err
	}

	return filename, nil
}
