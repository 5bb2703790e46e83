package readiness

import "github.com/dimilowe/vcmstore/content"

type predicate struct {
	reason Reason
	pass   func(Page) bool
}

// predicates are evaluated in this order and reasons are reported in it.
var predicates = []predicate{
	{ReasonWordCount, func(p Page) bool { return p.Health.AtLeast(content.TierOK) }},
	{ReasonManualReview, func(p Page) bool { return p.ManualReviewPassed }},
	{ReasonInternalLinks, linksMet},
}

// linksMet passes when the page's links are not tracked or no expectation
// exists for its URL.
func linksMet(p Page) bool {
	if p.InternalLinks == nil || p.ExpectedLinks == nil {
		return true
	}
	return *p.InternalLinks >= *p.ExpectedLinks
}
