package scraper

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly"
)

const defaultTimeout = 10 * time.Second

// Options configures the HTTP side of the collectors.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// NewCollector builds the base collector that listing and detail fetches
// clone. Pages may be revisited so that every run starts from page 1.
func NewCollector(opts Options) *colly.Collector {
	c := colly.NewCollector(colly.AllowURLRevisit())
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetRequestTimeout(timeout)
	return c
}

// visit performs a blocking GET with c. Any status other than 200 is
// reported as a *StatusError.
func visit(c *colly.Collector, u string) error {
	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(u)
	if status != 0 && status != http.StatusOK {
		return &StatusError{URL: u, StatusCode: status}
	}
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	return nil
}
