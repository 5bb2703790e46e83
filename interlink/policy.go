// Package interlink computes how many internal links each page in a topic
// cluster is expected to carry, and finds tool pages that no cluster claims.
package interlink

// Default link caps. Existing content was built against these exact values,
// so readiness checks stay compatible only while they are unchanged.
const (
	DefaultArticlesPerTool = 3
	DefaultToolsPerArticle = 3
	DefaultSiblingArticles = 2
)

// Policy caps the cross-links counted per page.
type Policy struct {
	// ArticlesPerTool caps the related-article links a tool page receives.
	ArticlesPerTool int `mapstructure:"articles_per_tool"`
	// ToolsPerArticle caps the related-tool links an article page receives.
	ToolsPerArticle int `mapstructure:"tools_per_article"`
	// SiblingArticles caps the sibling-article links an article page receives.
	SiblingArticles int `mapstructure:"sibling_articles"`
}

// DefaultPolicy returns the standard caps.
func DefaultPolicy() Policy {
	return Policy{
		ArticlesPerTool: DefaultArticlesPerTool,
		ToolsPerArticle: DefaultToolsPerArticle,
		SiblingArticles: DefaultSiblingArticles,
	}
}

// Expectation is the per-page link count for one cluster.
type Expectation struct {
	Pillar  int `json:"pillar"`
	Tool    int `json:"tool"`
	Article int `json:"article"`
}

// Expect applies the link formulas to a cluster with the given child counts:
//
//	pillar  = tools + articles
//	tool    = (tools - 1) + min(articles, ArticlesPerTool) + 1
//	article = min(tools, ToolsPerArticle) + min(articles - 1, SiblingArticles) + 1
//
// The trailing 1 is the backlink from the pillar.
func (p Policy) Expect(tools, articles int) Expectation {
	return Expectation{
		Pillar:  tools + articles,
		Tool:    max(tools-1, 0) + min(articles, p.ArticlesPerTool) + 1,
		Article: min(tools, p.ToolsPerArticle) + min(max(articles-1, 0), p.SiblingArticles) + 1,
	}
}
