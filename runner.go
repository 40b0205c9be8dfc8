package webparazzi

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ChoiSG/webparazzi/pkg/resolver"
	"github.com/ChoiSG/webparazzi/pkg/screener"
	"github.com/root4loot/goutils/log"
)

const Version = "0.2.0"

type Runner struct {
	Options  *Options
	Resolver *resolver.Resolver
	Capturer screener.Capturer
}

// Options contains options for the runner
type Options struct {
	CaptureConcurrency int                     `yaml:"capture_concurrency" validate:"min=1"`         // Number of captures in flight
	OutputDir          string                  `yaml:"output_dir" validate:"required"`               // Folder screenshots are written to
	Imprint            bool                    `yaml:"imprint"`                                      // Draw the URL origin below each screenshot
	AvoidDuplicates    bool                    `yaml:"avoid_duplicates"`                             // Skip screenshots similar to one already saved
	DuplicateThreshold int                     `yaml:"duplicate_threshold" validate:"min=1,max=100"` // Similarity score (1-100) treated as duplicate
	Resolver           resolver.Options        `yaml:"resolver"`                                     // Scheme resolution options
	Capture            screener.CaptureOptions `yaml:"capture"`                                      // Browser capture options
	Silence            bool                    `yaml:"silence"`                                      // Silence output
	Verbose            bool                    `yaml:"verbose"`                                      // Verbose logging
}

// Report is the outcome of a full run.
type Report struct {
	Reachable []string  // Final URLs, in resolution completion order
	Broken    []string  // Targets that could not be resolved
	Outcomes  []Outcome // One per reachable URL, in capture completion order
}

func init() {
	log.Init("webparazzi")
}

// DefaultOptions returns default options
func DefaultOptions() *Options {
	return &Options{
		CaptureConcurrency: 4,
		OutputDir:          defaultOutputDir(),
		DuplicateThreshold: 96,
		Resolver:           resolver.NewOptions(),
		Capture:            screener.NewOptions(),
	}
}

func defaultOutputDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "images"
	}
	return filepath.Join(cwd, "images")
}

// NewRunner returns a new runner
func NewRunner() *Runner {
	return NewRunnerWithOptions(*DefaultOptions())
}

// NewRunnerWithOptions returns a new runner with the specified options
func NewRunnerWithOptions(options Options) *Runner {
	SetLogLevel(&options)
	log.Debug("Creating new runner with options...")

	if options.CaptureConcurrency <= 0 {
		options.CaptureConcurrency = DefaultOptions().CaptureConcurrency
	}

	return &Runner{
		Options:  &options,
		Resolver: resolver.New(options.Resolver),
		Capturer: screener.New(options.Capture),
	}
}

// ResolveAll resolves every target and returns once all of them have a result.
func (r *Runner) ResolveAll(ctx context.Context, targets []string) []resolver.Result {
	return r.Resolver.ResolveAll(ctx, targets)
}

// Run resolves targets, partitions the results and captures every reachable
// URL. Capture starts only after all resolutions are done. Per-target
// failures are recorded in the report; the only error returned is failing to
// create the output directory.
func (r *Runner) Run(ctx context.Context, targets []string) (*Report, error) {
	report := &Report{}
	report.Reachable, report.Broken = Partition(r.ResolveAll(ctx, targets))

	outcomes, err := r.CaptureAll(ctx, report.Reachable)
	if err != nil {
		return report, err
	}
	report.Outcomes = outcomes

	return report, nil
}

// Saved returns the number of screenshots written to disk.
func (report *Report) Saved() (n int) {
	for _, outcome := range report.Outcomes {
		if outcome.Path != "" {
			n++
		}
	}
	return n
}

// ShareProbeSettings gives probes and browsers the same identity and
// certificate policy. The user agent is read from Capture and the certificate
// policy from Resolver.
func (o *Options) ShareProbeSettings() {
	o.Resolver.UserAgent = o.Capture.UserAgent
	o.Capture.RespectCertificateErrors = o.Resolver.RespectCertificateErrors
}

// SetLogLevel sets the log level based on the options
func SetLogLevel(options *Options) {
	if options.Silence {
		log.SetLevel(log.FatalLevel)
	} else if options.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
