package scraper

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"
)

// Listing page markup.
const (
	CardSelector  = "div.card.h-100.border-0.shadow"
	TitleSelector = "h2.card-title"
	LinkSelector  = "a.rounded.poster"
)

// Entry is the summary of one movie on a listing page.
type Entry struct {
	Title string
	Link  string
}

// Page is one listing page. Cards counts every movie container found,
// including the ones without a usable title or link.
type Page struct {
	Number  int
	URL     string
	Cards   int
	Entries []Entry
}

// Lister walks a paginated listing.
type Lister interface {
	Pages(ctx context.Context, baseURL string) iter.Seq2[Page, error]
}

// Paginator fetches listing pages one after another until a page has no
// movie cards.
type Paginator struct {
	collector *colly.Collector
	log       *logrus.Logger
}

func NewPaginator(c *colly.Collector, log *logrus.Logger) *Paginator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Paginator{collector: c, log: log}
}

// PageURL returns the address of listing page n.
func PageURL(baseURL string, n int) string {
	if n <= 1 {
		return baseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + "page/" + strconv.Itoa(n) + "/"
}

// Pages yields listing pages starting from page 1. The sequence ends after
// the first page without cards. A failed page is yielded once with a
// *PageError and ends the sequence. Each call starts over from page 1.
func (p *Paginator) Pages(ctx context.Context, baseURL string) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for n := 1; ; n++ {
			u := PageURL(baseURL, n)
			if err := ctx.Err(); err != nil {
				yield(Page{Number: n, URL: u}, err)
				return
			}
			page, err := p.fetch(n, u)
			if err != nil {
				yield(page, &PageError{Page: n, URL: u, Err: err})
				return
			}
			if page.Cards == 0 {
				p.log.WithField("page", n).Debug("Listing exhausted")
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

func (p *Paginator) fetch(n int, u string) (Page, error) {
	page := Page{Number: n, URL: u}
	c := p.collector.Clone()
	c.OnHTML(CardSelector, func(e *colly.HTMLElement) {
		page.Cards++
		title := strings.TrimSpace(e.DOM.Find(TitleSelector).First().Text())
		href := strings.TrimSpace(e.ChildAttr(LinkSelector, "href"))
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}
		if title == "" || href == "" {
			p.log.WithFields(logrus.Fields{"page": n, "title": title}).Warn("Skipping movie card without title or link")
			return
		}
		page.Entries = append(page.Entries, Entry{Title: title, Link: href})
	})

	p.log.WithFields(logrus.Fields{"page": n, "url": u}).Info("Visiting listing page")
	if err := visit(c, u); err != nil {
		return Page{Number: n, URL: u}, err
	}
	return page, nil
}
