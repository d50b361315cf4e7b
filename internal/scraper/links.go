package scraper

import (
	"regexp"
	"sort"
)

var (
	wellFormedLink = regexp.MustCompile(`^https?://.+/.+$`) // https://example.com/some-text
	rootPath       = regexp.MustCompile(`^/.+$`)            // /some-text
)

// IsWellFormedLink reports whether href is already an absolute URL with a path.
func IsWellFormedLink(href string) bool {
	return wellFormedLink.MatchString(href)
}

// IsRootPath reports whether href is a root-relative path. It does not take
// part in link resolution.
func IsRootPath(href string) bool {
	return rootPath.MatchString(href)
}

// ResolveLink decides whether href goes into the article set.
//
// Only hrefs that are NOT well-formed absolute URLs are kept, as base+href
// verbatim. Absolute links, including same-site ones, are dropped.
func ResolveLink(baseURL, href string) (string, bool) {
	if IsWellFormedLink(href) {
		return "", false
	}
	return baseURL + href, true
}

// ResolveLinks applies ResolveLink to every href and returns the resulting
// set, sorted so that runs are reproducible.
func ResolveLinks(baseURL string, hrefs []string) []string {
	set := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		if link, ok := ResolveLink(baseURL, href); ok {
			set[link] = struct{}{}
		}
	}

	links := make([]string, 0, len(set))
	for link := range set {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}
