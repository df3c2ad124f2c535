package testutil

import (
	"fmt"
	"time"

	"github.com/target/disclosure-collector/internal/domain/model"
)

// FeedItemBuilder provides a fluent interface for building feed items for tests.
type FeedItemBuilder struct {
	item model.FeedItem
}

// NewFeedItem creates a builder with a valid item disclosed at noon UTC on day.
func NewFeedItem(id string, day time.Time) *FeedItemBuilder {
	y, m, d := day.UTC().Date()
	return &FeedItemBuilder{item: model.FeedItem{
		ID:          id,
		CompanyCode: "1301",
		CompanyName: "Test Holdings",
		Title:       "Quarterly report " + id,
		Category:    "earnings",
		DisclosedAt: time.Date(y, m, d, 12, 0, 0, 0, time.UTC),
		DocumentURL: "https://feed.test/docs/" + id + ".pdf",
	}}
}

// WithCompany sets the company code.
func (b *FeedItemBuilder) WithCompany(code string) *FeedItemBuilder {
	b.item.CompanyCode = code
	return b
}

// WithDocumentURL sets the document URL.
func (b *FeedItemBuilder) WithDocumentURL(url string) *FeedItemBuilder {
	b.item.DocumentURL = url
	return b
}

// Build returns the feed item.
func (b *FeedItemBuilder) Build() model.FeedItem {
	return b.item
}

// Disclosure builds a valid record for the item.
func (b *FeedItemBuilder) Disclosure(jobID string) *model.Disclosure {
	d, err := model.NewDisclosure(b.item, jobID, b.item.DisclosedAt)
	if err != nil {
		panic(fmt.Sprintf("testutil: invalid feed item %q: %v", b.item.ID, err))
	}
	return d
}

// FeedItems returns n items with sequential ids prefixed by prefix, all on day.
func FeedItems(prefix string, day time.Time, n int) []model.FeedItem {
	items := make([]model.FeedItem, n)
	for i := range n {
		items[i] = NewFeedItem(fmt.Sprintf("%s-%04d", prefix, i), day).Build()
	}
	return items
}
