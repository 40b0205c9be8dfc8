package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChoiSG/webparazzi"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/sliceutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cli struct {
	options           *webparazzi.Options
	Infile            string
	TargetURL         string
	ConfigFile        string
	IgnoreStatusCodes string
	Debug             bool
}

func init() {
	log.Init("webparazzi")
}

func main() {
	c := newCLI()
	if err := c.command(run).Execute(); err != nil {
		os.Exit(1)
	}
}

func newCLI() *cli {
	return &cli{options: webparazzi.DefaultOptions()}
}

func (c *cli) command(runFn func(context.Context, *cli) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webparazzi -f <targets.txt> [options]",
		Short: "Resolve a list of hosts and screenshot the ones that answer",
		Long: `webparazzi reads hostnames, IP addresses or URLs (one per line), finds a
working http:// or https:// URL for each and saves a screenshot of every
reachable target as <output-dir>/<host[:port]>.png.`,
		Version: webparazzi.Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := c.applyConfig(cmd.Flags()); err != nil {
				return err
			}
			if err := c.finalize(); err != nil {
				return err
			}
			return runFn(cmd.Context(), c)
		},
	}

	c.parseFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *cli) parseFlags(flags *pflag.FlagSet) {
	o := c.options

	// INPUT
	flags.StringVarP(&c.Infile, "file", "f", "", "input file with list of targets (one per line)")
	flags.StringVarP(&c.TargetURL, "url", "u", "", "single extra target (domain, IP, URL)")
	flags.StringVar(&c.ConfigFile, "config", "", "YAML config file; flags override its values")

	// CONFIGURATIONS
	flags.IntVarP(&o.Resolver.Concurrency, "concurrency", "c", o.Resolver.Concurrency, "number of concurrent scheme resolutions")
	flags.IntVar(&o.Resolver.Timeout, "resolve-timeout", o.Resolver.Timeout, "timeout for each resolution probe (seconds)")
	flags.Float64Var(&o.Resolver.RateLimit, "rate", o.Resolver.RateLimit, "max resolution probes per second (0 = unlimited)")
	flags.StringVar(&c.IgnoreStatusCodes, "ignore-status-codes", "", "treat targets answering with these status codes as broken (comma separated)")
	flags.IntVar(&o.CaptureConcurrency, "capture-concurrency", o.CaptureConcurrency, "number of browsers running at once")
	flags.IntVarP(&o.Capture.Timeout, "timeout", "t", o.Capture.Timeout, "navigation timeout for each screenshot (seconds)")
	flags.StringVarP(&o.Capture.Engine, "engine", "e", o.Capture.Engine, "browser driver: rod or chromedp")
	flags.StringVarP(&o.Capture.UserAgent, "user-agent", "a", o.Capture.UserAgent, "user agent for probes and browsers")
	flags.IntVar(&o.Capture.CaptureWidth, "capture-width", o.Capture.CaptureWidth, "output width")
	flags.IntVar(&o.Capture.CaptureHeight, "capture-height", o.Capture.CaptureHeight, "output height")
	flags.BoolVar(&o.Capture.CaptureFull, "capture-full", o.Capture.CaptureFull, "capture entire page")
	flags.IntVar(&o.Capture.DelayBeforeCapture, "delay-capture", o.Capture.DelayBeforeCapture, "delay before capture (seconds)")
	flags.BoolVar(&o.Capture.UseHTTP2, "use-http2", o.Capture.UseHTTP2, "use HTTP2 in the browser")
	flags.BoolVar(&o.Resolver.RespectCertificateErrors, "respect-cert-err", o.Resolver.RespectCertificateErrors, "respect certificate errors")

	// OUTPUT
	flags.StringVarP(&o.OutputDir, "output-dir", "o", o.OutputDir, "save screenshots to specified folder")
	flags.BoolVar(&o.Imprint, "imprint", o.Imprint, "draw the target URL below each screenshot")
	flags.BoolVar(&o.AvoidDuplicates, "avoid-duplicates", o.AvoidDuplicates, "do not save screenshots similar to one already saved")
	flags.IntVar(&o.DuplicateThreshold, "duplicate-threshold", o.DuplicateThreshold, "similarity percentage (1-100) treated as duplicate")
	flags.BoolVarP(&o.Silence, "silence", "s", o.Silence, "silence output")
	flags.BoolVar(&c.Debug, "debug", false, "enable debug mode")
}

// applyConfig loads the config file, if any, then re-applies the flags given
// on the command line so they take precedence.
func (c *cli) applyConfig(flags *pflag.FlagSet) error {
	if c.ConfigFile == "" {
		return nil
	}

	changed := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	loaded, err := webparazzi.LoadConfig(c.ConfigFile)
	if err != nil {
		return err
	}
	*c.options = *loaded

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("invalid value for --%s: %w", name, err)
		}
	}
	return nil
}

// finalize derives the options that have no direct flag binding.
func (c *cli) finalize() error {
	if c.Debug {
		c.options.Verbose = true
	}

	c.options.ShareProbeSettings()

	if c.IgnoreStatusCodes != "" {
		codes, err := parseStatusCodes(c.IgnoreStatusCodes)
		if err != nil {
			return err
		}
		c.options.Resolver.IgnoreStatusCodes = codes
	}

	return webparazzi.ValidateOptions(c.options)
}

func parseStatusCodes(s string) ([]int, error) {
	var codes []int
	for _, code := range strings.Split(s, ",") {
		statusCode, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("invalid status code: %s", code)
		}
		codes = append(codes, statusCode)
	}
	return codes, nil
}

func run(ctx context.Context, c *cli) error {
	runner := webparazzi.NewRunnerWithOptions(*c.options)

	targets := c.targets()
	log.Debugf("Loaded %d targets", len(targets))

	reachable, broken := webparazzi.Partition(runner.ResolveAll(ctx, targets))
	if !c.options.Silence {
		printResolved(os.Stdout, reachable, broken)
	}

	outcomes, err := runner.CaptureAll(ctx, reachable)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	if !c.options.Silence {
		printSaved(os.Stdout, outcomes, c.options.OutputDir)
	}
	return nil
}

// targets returns the targets from the input file followed by --url. Blank
// lines are dropped here; the file reader keeps them.
func (c *cli) targets() []string {
	lines, err := readFileLines(c.Infile)
	if err != nil {
		log.Errorf("Error reading file: %v", err)
	}

	if c.TargetURL != "" {
		lines = append(lines, strings.TrimSpace(c.TargetURL))
	}

	return sliceutil.DeleteEmpty(lines)
}
