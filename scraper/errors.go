package scraper

import (
	"errors"
	"fmt"
)

// ErrDetailUnavailable marks a detail page that answered with a status other
// than 200. The movie is skipped without a diagnostic.
var ErrDetailUnavailable = errors.New("detail page unavailable")

// StatusError is returned when a page answers with a status other than 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// PageError stops a run: a listing page could not be retrieved. Movies
// collected from earlier pages stay valid.
type PageError struct {
	Page int
	URL  string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("listing page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// ItemError is a failure confined to one movie.
type ItemError struct {
	Title string
	Link  string
	Stage string // "fetch" or "extract"
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("movie %q stage=%s: %v", e.Title, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
