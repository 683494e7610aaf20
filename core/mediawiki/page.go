package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingPage is returned when the wiki has no page with the title.
var ErrMissingPage = errors.New("page does not exist")

// Page is a page as resolved by a title query.
type Page struct {
	site *Site

	Title     string
	Namespace int
	PageID    int64

	// RedirectedFrom is the title that redirected here, if any.
	RedirectedFrom string
	// NormalizedTo is the normalized form of the requested title, if it changed.
	NormalizedTo string
}

type titleMap struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type pageInfo struct {
	PageID    int64                    `json:"pageid"`
	Namespace int                      `json:"ns"`
	Title     string                   `json:"title"`
	Missing   *string                  `json:"missing"`
	Invalid   *string                  `json:"invalid"`
	Revisions []map[string]interface{} `json:"revisions"`
}

type queryAnswer struct {
	Query struct {
		Normalized []titleMap          `json:"normalized"`
		Redirects  []titleMap          `json:"redirects"`
		Pages      map[string]pageInfo `json:"pages"`
	} `json:"query"`
}

// firstPage returns the only page of a single title query.
func (q *queryAnswer) firstPage(title string) (pageInfo, error) {
	for _, p := range q.Query.Pages {
		if p.Missing != nil || p.Invalid != nil {
			return p, fmt.Errorf("%q: %w", title, ErrMissingPage)
		}
		return p, nil
	}
	return pageInfo{}, fmt.Errorf("%q: %w", title, ErrMissingPage)
}

// Page looks title up. With redirect set, redirects are followed.
func (s *Site) Page(ctx context.Context, title string, redirect bool) (*Page, error) {
	params := url.Values{
		"action": {"query"},
		"titles": {title},
	}
	if redirect {
		params.Set("redirects", "")
	}

	var ans queryAnswer
	if err := s.call(ctx, params, &ans); err != nil {
		return nil, err
	}
	info, err := ans.firstPage(title)
	if err != nil {
		return nil, err
	}

	page := &Page{
		site:      s,
		Title:     info.Title,
		Namespace: info.Namespace,
		PageID:    info.PageID,
	}
	if len(ans.Query.Redirects) > 0 {
		page.RedirectedFrom = ans.Query.Redirects[0].From
	}
	if len(ans.Query.Normalized) > 0 {
		page.NormalizedTo = ans.Query.Normalized[0].To
	}
	return page, nil
}

// Get is Page with redirects followed.
func (s *Site) Get(ctx context.Context, title string) (*Page, error) {
	return s.Page(ctx, title, true)
}

// Content fetches the wikitext of the latest revision.
func (p *Page) Content(ctx context.Context) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {p.Title},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}
	var ans queryAnswer
	if err := p.site.call(ctx, params, &ans); err != nil {
		return "", err
	}
	info, err := ans.firstPage(p.Title)
	if err != nil {
		return "", err
	}
	if len(info.Revisions) == 0 {
		return "", fmt.Errorf("%q has no revisions", p.Title)
	}
	text, ok := revisionText(info.Revisions[0])
	if !ok {
		return "", fmt.Errorf("no content in revision of %q", p.Title)
	}
	return text, nil
}

// revisionText handles both the legacy "*" member and the slots layout.
func revisionText(rev map[string]interface{}) (string, bool) {
	if s, ok := rev["*"].(string); ok {
		return s, true
	}
	if s, ok := rev["content"].(string); ok {
		return s, true
	}
	slots, _ := rev["slots"].(map[string]interface{})
	main, _ := slots["main"].(map[string]interface{})
	if main == nil {
		return "", false
	}
	return revisionText(main)
}

// Edit replaces the page text.
func (p *Page) Edit(ctx context.Context, text, summary string) (*EditResult, error) {
	return p.site.Edit(ctx, p.Title, text, summary)
}

func (p *Page) String() string {
	base := p.site.apiURL
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[:i]
	}
	return fmt.Sprintf("<Page: %s from %s/>", p.Title, base)
}
