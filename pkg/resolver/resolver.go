package resolver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/28.0.1464.0 Safari/537.36"

// Options contains the options for resolving targets.
type Options struct {
	Concurrency              int     `yaml:"concurrency" validate:"min=1"` // Number of resolutions in flight
	Timeout                  int     `yaml:"timeout" validate:"min=1"`     // Timeout for each probe (seconds)
	UserAgent                string  `yaml:"-"`                            // User agent
	RespectCertificateErrors bool    `yaml:"respect_cert_errors"`          // Respect certificate errors
	IgnoreStatusCodes        []int   `yaml:"ignore_status_codes"`          // Status codes treated as unresolved
	RateLimit                float64 `yaml:"rate_limit" validate:"gte=0"`  // Probes per second (0 = unlimited)
}

// NewOptions returns Options initialized with default values.
func NewOptions() Options {
	return Options{
		Concurrency: 12,
		Timeout:     3,
		UserAgent:   DefaultUserAgent,
	}
}

// Result is the outcome of resolving a single target. When Resolved is false
// Target carries the original input and Err the last probe error.
type Result struct {
	Target     string
	FinalURL   string
	StatusCode int
	Resolved   bool
	Err        error
}

// Resolver finds a working URL for bare hosts, IPs and URLs.
type Resolver struct {
	Options Options

	// Transport is shared by every probe. New installs one that honours
	// Options.RespectCertificateErrors; replace it to route probes elsewhere.
	Transport http.RoundTripper

	limiter *rate.Limiter
}

// New creates a Resolver with the provided options.
func New(options Options) *Resolver {
	if options.Concurrency <= 0 {
		options.Concurrency = NewOptions().Concurrency
	}
	if options.Timeout <= 0 {
		options.Timeout = NewOptions().Timeout
	}

	r := &Resolver{
		Options: options,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !options.RespectCertificateErrors},
			MaxIdleConns:    100,
			IdleConnTimeout: 30 * time.Second,
		},
	}

	if options.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(options.RateLimit), 1)
	}

	return r
}

// Resolve probes target as given, then with http:// prepended when it has no
// scheme, then with https:// when the http attempt could not connect or timed
// out. It never returns an error; failures fold into an unresolved Result.
func (r *Resolver) Resolve(ctx context.Context, target string) Result {
	client, err := r.newSession()
	if err != nil {
		return Result{Target: target, Err: err}
	}

	fullURL := target
	if !urlutil.HasScheme(fullURL) {
		log.Debugf("No scheme specified for %s: trying http://", target)
		fullURL = "http://" + fullURL
	}

	resp, err := r.probe(ctx, client, fullURL)
	if err != nil && strings.HasPrefix(fullURL, "http://") && IsUnreachable(err) {
		log.Debugf("http:// failed for %s: %s. Trying https://", target, UnwrapError(err))
		fullURL = "https://" + strings.TrimPrefix(fullURL, "http://")
		resp, err = r.probe(ctx, client, fullURL)
	}

	if err != nil {
		log.Debugf("Could not resolve %s: %v", target, err)
		return Result{Target: target, Err: err}
	}

	if slices.Contains(r.Options.IgnoreStatusCodes, resp.StatusCode) {
		log.Debugf("Ignoring %s as it returned status code %d", target, resp.StatusCode)
		return Result{
			Target:     target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("ignored status code %d", resp.StatusCode),
		}
	}

	finalURL := resp.Request.URL.String()
	log.Debugf("%s resolved to %s (%d)", target, finalURL, resp.StatusCode)

	return Result{
		Target:     target,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Resolved:   true,
	}
}

// ResolveAll resolves targets with up to Options.Concurrency probes in flight
// and returns one Result per target in completion order.
func (r *Resolver) ResolveAll(ctx context.Context, targets []string) []Result {
	log.Debugf("Resolving %d targets with %d workers", len(targets), r.Options.Concurrency)

	resultsChan := make(chan Result, len(targets))
	sem := make(chan struct{}, r.Options.Concurrency)
	var wg sync.WaitGroup

	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(t string) {
			defer func() { <-sem }()
			defer wg.Done()
			resultsChan <- r.Resolve(ctx, t)
		}(target)
	}

	wg.Wait()
	close(resultsChan)

	results := make([]Result, 0, len(targets))
	for result := range resultsChan {
		results = append(results, result)
	}

	return results
}

// newSession returns a client whose cookies live for one resolution only.
func (r *Resolver) newSession() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: r.Transport,
		Jar:       jar,
		Timeout:   time.Duration(r.Options.Timeout) * time.Second,
	}, nil
}

// probe issues a GET against rawURL, following redirects. The response body is
// drained and closed; only the status and final request are kept.
func (r *Resolver) probe(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	if r.Options.UserAgent != "" {
		req.Header.Set("User-Agent", r.Options.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp, nil
}
