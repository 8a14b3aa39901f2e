package liturgy

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

// FeedSource fetches readings from a daily-readings RSS/Atom feed. Feed
// items link to a page holding the day's readings; the page body is run
// through readability extraction and cleaned up before use.
type FeedSource struct {
	FeedURL string
	parser  *gofeed.Parser
	client  *http.Client
}

// NewFeedSource creates a feed-backed readings source.
func NewFeedSource(feedURL string, timeout time.Duration) *FeedSource {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &FeedSource{
		FeedURL: feedURL,
		parser:  gofeed.NewParser(),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchReadingSet finds the feed item published on the given date and builds
// a single-reading set from its linked page. Returns production.ErrNotFound
// when no item matches the date.
func (f *FeedSource) FetchReadingSet(date time.Time) (*production.ReadingSet, error) {
	feed, err := f.parser.ParseURL(f.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing readings feed: %w", err)
	}

	want := date.Format("2006-01-02")
	item := findItemForDate(feed, want)
	if item == nil {
		return nil, production.ErrNotFound
	}

	text, err := f.extractReadingText(item)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, production.ErrNotFound
	}

	dayName := strings.TrimSpace(item.Title)
	if dayName == "" {
		dayName = "Daily Reading"
	}

	return &production.ReadingSet{
		Date:    want,
		DayName: dayName,
		// Feeds carry no liturgical color metadata.
		Color: "Branco",
		Readings: []production.Reading{{
			Kind:      "Evangelho",
			Title:     dayName,
			Reference: dayName,
			Text:      text,
		}},
	}, nil
}

func findItemForDate(feed *gofeed.Feed, date string) *gofeed.Item {
	for _, item := range feed.Items {
		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format("2006-01-02")
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.Format("2006-01-02")
		}
		if published == date {
			return item
		}
	}
	return nil
}

// extractReadingText pulls the reading body out of the item's linked page,
// falling back to the item's own content when the page fetch fails.
func (f *FeedSource) extractReadingText(item *gofeed.Item) (string, error) {
	if item.Link != "" {
		text, err := f.fetchPageText(item.Link)
		if err != nil {
			log.Printf("Feed page fetch failed for %s: %v", item.Link, err)
		} else if text != "" {
			return text, nil
		}
	}

	if item.Content != "" {
		return cleanHTMLFragment(item.Content), nil
	}
	if item.Description != "" {
		return cleanHTMLFragment(item.Description), nil
	}
	return "", nil
}

func (f *FeedSource) fetchPageText(pageURL string) (string, error) {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "liturgycast/1.0 (daily readings)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

// cleanHTMLFragment strips markup from an inline feed fragment, dropping
// navigation cruft and collapsing whitespace.
func cleanHTMLFragment(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style, nav, a").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
