package dto

import (
	"github.com/wanxtv/wanx/backend/internal/feed"
)

// NextMaxs is the "maxs" a client sends to get the following page.
// Page-mode requests get null.
func NextMaxs(requested feed.Cursor, next feed.Cursor) *float64 {
	if requested.IsPage() {
		return nil
	}
	v := next.Value()
	return &v
}

// FeedResponse renders a page as {<key>: items, "end_page": bool, "maxs": number|null}.
// When the next cursor sits inside a run of equal keys it also carries "after", which
// clients send back alongside maxs.
func FeedResponse(key string, items any, endPage bool, requested, next feed.Cursor) map[string]any {
	body := map[string]any{
		key:        items,
		"end_page": endPage,
		"maxs":     NextMaxs(requested, next),
	}
	if !requested.IsPage() && next.After() != "" {
		body["after"] = next.After()
	}
	return body
}
