// Package storefront talks to the game storefront: the search listing used to
// build the master list, the per-app details API, and the app page that
// carries user tags.
package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

const service = "storefront"

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Delay is the minimum gap between two requests. Zero disables pacing.
	Delay time.Duration

	// CountryCode and Language select prices and texts of the details API.
	CountryCode string
	Language    string
}

// DefaultOptions returns the options used by the details job.
func DefaultOptions() Options {
	return Options{
		BaseURL:     constants.DefaultStorefrontURL,
		UserAgent:   constants.DefaultUserAgent,
		Timeout:     constants.DefaultHTTPTimeout,
		Delay:       constants.DetailsDelay,
		CountryCode: constants.DefaultCountryCode,
		Language:    constants.DefaultLanguage,
	}
}

// Client is a paced storefront HTTP client. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	opts    Options
	now     func() time.Time
}

// New creates a Client. Empty options fall back to DefaultOptions.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.CountryCode == "" {
		opts.CountryCode = def.CountryCode
	}
	if opts.Language == "" {
		opts.Language = def.Language
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseURL)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)
	// pass the age check on app pages
	httpClient.SetHeader("cookie", "birthtime=0; wants_mature_content=1")

	// one request per Delay, no bursts
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &Client{
		http:    httpClient,
		limiter: limiter,
		opts:    opts,
		now:     time.Now,
	}
}

// get performs a GET and maps the outcome onto the error taxonomy:
// 429 is a RateLimitError, any other non-200 status or a transport failure
// is an UpstreamError.
func (c *Client) get(ctx context.Context, id int64, path string, params map[string]string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewUpstreamError(service, id, 0, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp, nil
	case http.StatusTooManyRequests:
		return nil, errors.NewRateLimitError(service, id, retryAfter(resp.Header().Get("Retry-After")))
	default:
		return nil, errors.NewUpstreamError(service, id, resp.StatusCode(), nil)
	}
}

// getJSON performs a GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, id int64, path string, params map[string]string, out any) error {
	resp, err := c.get(ctx, id, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &errors.UpstreamError{
			Service:    service,
			ID:         id,
			StatusCode: resp.StatusCode(),
			Message:    "invalid JSON response: " + err.Error(),
			Err:        err,
		}
	}
	return nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
