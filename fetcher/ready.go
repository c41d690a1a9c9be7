package fetcher

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	listingSelector = cascadia.MustCompile("table tbody")
	rootSelector    = cascadia.MustCompile("#root, #app, #__next")
)

// listingRendered reports whether the static markup already carries the
// listing table. The portal populates the table asynchronously, so a page
// fetched over plain HTTP may be only an application shell; in that case
// the fetch must be escalated to the browser engine.
//
// A table with an empty tbody still counts as rendered: the portal serves
// its no-results pages with the same skeleton, and the extractor needs to
// see them to detect end-of-listing.
func listingRendered(rawHTML string) bool {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}

	if cascadia.Query(doc, listingSelector) != nil {
		return true
	}

	// An SPA root container with children but no table means the app did
	// render — just without a listing. Anything else is an unrendered shell.
	if root := cascadia.Query(doc, rootSelector); root != nil {
		return root.FirstChild != nil && visibleTextLen(root) > 0
	}

	return false
}

// visibleTextLen sums the trimmed text length under a node, skipping
// script and style subtrees.
func visibleTextLen(n *html.Node) int {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
		return 0
	}
	total := 0
	if n.Type == html.TextNode {
		total += len(strings.TrimSpace(n.Data))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += visibleTextLen(c)
	}
	return total
}
