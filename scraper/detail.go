package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocolly/colly"

	"cine-scraper/extractor"
)

// DetailSource returns the descriptive block of a movie page.
type DetailSource interface {
	Fetch(ctx context.Context, link string) (extractor.Block, error)
}

// DetailFetcher retrieves detail pages with a clone of the base collector.
type DetailFetcher struct {
	collector *colly.Collector
}

func NewDetailFetcher(c *colly.Collector) *DetailFetcher {
	return &DetailFetcher{collector: c}
}

// Fetch downloads link and splits its detail block. A status other than 200
// yields an error matching ErrDetailUnavailable.
func (f *DetailFetcher) Fetch(ctx context.Context, link string) (extractor.Block, error) {
	if err := ctx.Err(); err != nil {
		return extractor.Block{}, err
	}

	var (
		block    extractor.Block
		blockErr = extractor.ErrMissingBlock
		seen     bool
	)
	c := f.collector.Clone()
	c.OnHTML(extractor.BlockSelector, func(e *colly.HTMLElement) {
		if seen {
			return
		}
		seen = true
		block, blockErr = extractor.ParseBlock(e.DOM)
	})

	if err := visit(c, link); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return extractor.Block{}, fmt.Errorf("%w: %w", ErrDetailUnavailable, err)
		}
		return extractor.Block{}, err
	}
	return block, blockErr
}
