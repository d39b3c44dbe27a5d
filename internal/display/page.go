// Package display implements the board page contract: two regions, each
// filled by its own fetch of a published resource.
package display

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"workorder-board/internal/types"
)

// Page holds the text region and the HTML container region of the board.
// The two regions are written independently and never depend on each other.
type Page struct {
	mu              sync.RWMutex
	number          string
	details         string
	numberLoadedAt  time.Time
	detailsLoadedAt time.Time
}

// NewPage returns a page with both regions empty
func NewPage() *Page {
	return &Page{}
}

// SetNumber replaces the text of the number region
func (p *Page) SetNumber(text string, at time.Time) {
	p.mu.Lock()
	p.number = text
	p.numberLoadedAt = at
	p.mu.Unlock()
}

// SetDetails replaces the markup of the details container
func (p *Page) SetDetails(markup string, at time.Time) {
	p.mu.Lock()
	p.details = markup
	p.detailsLoadedAt = at
	p.mu.Unlock()
}

// Number returns the text currently shown in the number region
func (p *Page) Number() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.number
}

// Details returns the markup currently held by the details container
func (p *Page) Details() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details
}

// Snapshot returns both regions at once
func (p *Page) Snapshot() types.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return types.Snapshot{
		Number:          p.number,
		Details:         p.details,
		NumberLoadedAt:  p.numberLoadedAt,
		DetailsLoadedAt: p.detailsLoadedAt,
	}
}

// DetailsNodes parses the details markup the way a browser does when it is
// assigned to a div's inner HTML.
func (p *Page) DetailsNodes() ([]*html.Node, error) {
	return ParseFragment(p.Details())
}

// ParseFragment parses markup in the context of a <div> element
func ParseFragment(markup string) ([]*html.Node, error) {
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	return html.ParseFragment(strings.NewReader(markup), container)
}
