package utils

import "github.com/microcosm-cc/bluemonday"

// anchorPolicy admits only the anchor markup order line metadata is built
// from: a single <a href> with its link text.
var anchorPolicy = newAnchorPolicy()

func newAnchorPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	return p
}

// SanitizeAnchor strips everything except a plain link from rendered metadata HTML.
func SanitizeAnchor(input string) string {
	return anchorPolicy.Sanitize(input)
}

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup; used for user supplied display strings.
func SanitizeText(input string) string {
	return textPolicy.Sanitize(input)
}
