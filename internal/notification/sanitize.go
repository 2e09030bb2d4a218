package notification

import "github.com/microcosm-cc/bluemonday"

// newEmailPolicy allows the markup used by stage templates, which recruiters
// can edit: block layout, emphasis, links and inline styling.
func newEmailPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"div", "span", "p", "br", "hr",
		"h1", "h2", "h3", "h4",
		"ul", "ol", "li", "blockquote",
		"strong", "em", "b", "i", "u",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https", "mailto")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowStyles(
		"font-family", "font-size", "font-weight", "line-height",
		"color", "background-color", "text-align",
		"margin", "margin-top", "margin-bottom",
		"padding", "max-width",
		"border", "border-top", "border-left", "border-radius",
	).Globally()

	return p
}
