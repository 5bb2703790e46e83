package content

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var routes = []struct {
	pattern string
	prefix  string
	typ     Type
}{
	{"/tools/*", "/tools/", TypeTool},
	{"/blog/*", "/blog/", TypeArticle},
	{"/topics/*", "/topics/", TypePillar},
	{"/mbb/*", "/mbb/", TypeMBB},
	{"/cloud/*", "/cloud/", TypeCloudDashboard},
}

// URLFor returns the public path for a page of type t.
func URLFor(t Type, slug string) string {
	for _, r := range routes {
		if r.typ == t {
			return r.prefix + slug
		}
	}
	return "/" + string(t) + "/" + slug
}

// ParseURL is the inverse of URLFor. A trailing slash is ignored.
func ParseURL(u string) (Type, string, bool) {
	u = strings.TrimSuffix(u, "/")
	for _, r := range routes {
		if ok, _ := doublestar.Match(r.pattern, u); ok {
			return r.typ, strings.TrimPrefix(u, r.prefix), true
		}
	}
	return "", "", false
}

// IsToolURL reports whether u is a single tool page.
func IsToolURL(u string) bool {
	ok, _ := doublestar.Match("/tools/*", strings.TrimSuffix(u, "/"))
	return ok
}
