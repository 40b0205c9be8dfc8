package webparazzi

import (
	"context"
	"fmt"
	"os"

	"github.com/ChoiSG/webparazzi/pkg/resolver"
	"github.com/ChoiSG/webparazzi/pkg/screener"
	"github.com/root4loot/goutils/log"
	"golang.org/x/sync/errgroup"
)

// Outcome is the terminal state of one capture task.
type Outcome struct {
	URL     string // Reachable URL that was captured
	Path    string // File written, empty unless the screenshot was saved
	Skipped bool   // Similar to a screenshot saved earlier in the batch
	Err     error  // Capture or write failure
}

type captured struct {
	url    string
	result *screener.Result
	err    error
}

// CaptureAll captures every URL with at most Options.CaptureConcurrency
// browsers running. Captures that fail are logged and recorded in their
// Outcome; they never stop the others. Results are saved as they arrive by
// this goroutine alone, so duplicate detection needs no locking.
func (r *Runner) CaptureAll(ctx context.Context, urls []string) ([]Outcome, error) {
	if err := os.MkdirAll(r.Options.OutputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", r.Options.OutputDir, err)
	}

	limit := r.Options.CaptureConcurrency
	if limit <= 0 {
		limit = DefaultOptions().CaptureConcurrency
	}

	capturedChan := make(chan captured)
	g := new(errgroup.Group)
	g.SetLimit(limit)

	go func() {
		for _, u := range urls {
			u := u
			log.Infof("Taking screenshot of %s", u)
			g.Go(func() error {
				result, err := r.capture(ctx, u)
				capturedChan <- captured{url: u, result: result, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(capturedChan)
	}()

	outcomes := make([]Outcome, 0, len(urls))
	var saved []screener.Result

	for c := range capturedChan {
		outcome := r.save(c, saved)
		if outcome.Path != "" {
			saved = append(saved, *c.result)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// capture runs the Capturer for one URL, turning panics into errors.
func (r *Runner) capture(ctx context.Context, url string) (result *screener.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("capture of %s panicked: %v", url, rec)
		}
	}()

	return r.Capturer.Capture(ctx, url)
}

func (r *Runner) save(c captured, saved []screener.Result) Outcome {
	outcome := Outcome{URL: c.url}

	if c.err != nil {
		logCaptureError(c.url, c.err)
		outcome.Err = c.err
		return outcome
	}

	if c.result == nil || len(c.result.Image) == 0 {
		log.Warnf("Screenshot capture failed for %s: no valid result", c.url)
		outcome.Err = screener.ErrEmptyImage
		return outcome
	}

	// Name the file after the resolved URL, not wherever the browser landed.
	c.result.TargetURL = c.url
	result := *c.result

	if r.Options.AvoidDuplicates {
		similar, err := result.IsSimilarToAny(saved, r.Options.DuplicateThreshold)
		if err != nil {
			log.Warnf("Could not perform similarity check for %s: %v", c.url, err)
		} else if similar {
			log.Infof("Duplicate screenshot found for %s. Skipping save.", c.url)
			outcome.Skipped = true
			return outcome
		}
	}

	if r.Options.Imprint {
		image, err := result.Image.AddTextToImage(c.url)
		if err != nil {
			log.Warnf("Error adding text to image for %s: %v", c.url, err)
		} else {
			result.Image = image
		}
	}

	fn, err := result.SaveImageToFolder(r.Options.OutputDir)
	if err != nil {
		log.Errorf("Error saving screenshot for %s: %v", c.url, err)
		outcome.Err = err
		return outcome
	}

	log.Infof("Screenshot saved to %s", fn)
	outcome.Path = fn
	return outcome
}

func logCaptureError(url string, err error) {
	switch {
	case resolver.IsDNSError(err):
		log.Warnf("DNS lookup failed for %s: %s", url, resolver.UnwrapError(err))
	case resolver.IsTimeoutError(err):
		log.Warnf("Timeout occurred while capturing screenshot for %s: %v", url, err)
	default:
		log.Errorf("Error capturing screenshot for %s: %s", url, resolver.UnwrapError(err))
	}
}
