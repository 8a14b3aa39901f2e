package liturgy

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestCleanHTMLFragment(t *testing.T) {
	fragment := `<div><script>alert(1)</script><p>Naquele tempo,  Jesus
	disse:</p> <a href="/x">read more</a> <p>Segui-me.</p></div>`

	got := cleanHTMLFragment(fragment)
	if got != "Naquele tempo, Jesus disse: Segui-me." {
		t.Errorf("unexpected cleaned text: %q", got)
	}
}

func TestFindItemForDate(t *testing.T) {
	day1 := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 2, 6, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Title: "Reading for Sep 1", PublishedParsed: &day1},
		{Title: "Reading for Sep 2", PublishedParsed: &day2},
	}}

	item := findItemForDate(feed, "2026-09-02")
	if item == nil || item.Title != "Reading for Sep 2" {
		t.Errorf("unexpected item: %+v", item)
	}
	if findItemForDate(feed, "2026-09-03") != nil {
		t.Error("expected nil for date with no item")
	}
}

func TestFindItemForDateUsesUpdatedFallback(t *testing.T) {
	updated := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Title: "Only updated", UpdatedParsed: &updated},
	}}
	if findItemForDate(feed, "2026-09-01") == nil {
		t.Error("expected match on updated timestamp")
	}
}
