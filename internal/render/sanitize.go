package render

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var allowedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "br", "strong", "em", "del", "s", "a", "img",
	"code", "pre", "blockquote", "ul", "ol", "li", "hr",
	"table", "thead", "tbody", "tr", "th", "td",
	"div", "span", "sub", "sup", "mark", "small", "b", "i", "u",
}

var allowedAttrs = []string{
	"src", "alt", "title", "width", "height",
	"class", "id", "align", "style", "data-lang", "data-language",
}

var allowedSchemes = []string{
	"http", "https", "ftp", "ftps", "mailto", "tel", "callto", "cid", "xmpp",
}

var allowedStyles = []string{
	"color", "background-color", "text-align", "font-weight", "font-style",
	"text-decoration", "width", "height", "margin", "padding",
}

// linkTarget matches hrefs that are relative or use a non-data scheme.
// data: URLs are only allowed on images.
var linkTarget = regexp.MustCompile(`(?i)^\s*(?:(?:https?|ftps?|mailto|tel|callto|cid|xmpp):|[^:/?#]*(?:[/?#]|$))`)

// dataImage accepts only inline raster images among data: URLs.
func dataImage(u *url.URL) bool {
	for _, mt := range []string{"image/png", "image/gif", "image/jpeg", "image/webp"} {
		if strings.HasPrefix(u.Opaque, mt+";") || strings.HasPrefix(u.Opaque, mt+",") {
			return true
		}
	}
	return false
}

// NewPolicy returns the sanitizer applied to rendered documents. Relative
// URLs pass; absolute URLs need an allow-listed scheme.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs(allowedAttrs...).Globally()
	p.AllowAttrs("href").Matching(linkTarget).Globally()
	p.AllowStyles(allowedStyles...).Globally()
	p.AllowURLSchemes(allowedSchemes...)
	p.AllowURLSchemeWithCustomPolicy("data", dataImage)
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}
