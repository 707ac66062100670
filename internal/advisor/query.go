package advisor

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var queryPolicy = bluemonday.StrictPolicy()

// CleanQuery strips any markup from user supplied text and trims it. Chat
// clients frequently wrap messages in <p> tags.
func CleanQuery(raw string) string {
	return strings.TrimSpace(html.UnescapeString(queryPolicy.Sanitize(raw)))
}
