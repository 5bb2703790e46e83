// Package markdown renders the small Markdown dialect used by CMS article
// bodies and measures the figures the readiness checks depend on.
package markdown

import (
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/a-h/templ"
)

var (
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reLink       = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrdered    = regexp.MustCompile(`^\d+\.\s`)
)

// Stats are the measurements taken from a Markdown body.
type Stats struct {
	Words int `json:"words"`
	// InternalLinks counts distinct site-relative link targets.
	InternalLinks int `json:"internalLinks"`
}

// Analyze counts words and distinct internal link targets in md. Fenced code
// is ignored for both.
func Analyze(md string) Stats {
	var st Stats
	targets := map[string]struct{}{}
	inCode := false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode || line == "" || isRule(line) {
			continue
		}
		for _, m := range reLink.FindAllStringSubmatch(line, -1) {
			if href := strings.TrimSpace(m[2]); IsInternal(href) {
				targets[strings.TrimSuffix(strings.SplitN(href, "#", 2)[0], "/")] = struct{}{}
			}
		}
		st.Words += countWords(reLink.ReplaceAllString(line, "$1"))
	}
	st.InternalLinks = len(targets)
	return st
}

// IsInternal reports whether href points at another page on this site.
func IsInternal(href string) bool {
	return strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")
}

func countWords(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

func isRule(line string) bool {
	return strings.HasPrefix(line, "---") || strings.HasPrefix(line, "|-") || strings.HasPrefix(line, "| -")
}

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Render(md))
		return err
	})
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockCode
)

var closers = map[block]string{
	blockPara:    "</p>",
	blockList:    "</ul>",
	blockOrdered: "</ol>",
	blockQuote:   "</blockquote>",
	blockCode:    "</code></pre>",
}

// Render converts md to HTML.
func Render(md string) string {
	var b strings.Builder
	cur := blockNone
	open := func(next block, tag string) {
		if cur == next {
			return
		}
		b.WriteString(closers[cur])
		b.WriteString(tag)
		cur = next
	}
	closeBlock := func() {
		b.WriteString(closers[cur])
		cur = blockNone
	}

	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.HasPrefix(line, "```") {
			if cur == blockCode {
				closeBlock()
				continue
			}
			lang := strings.TrimSpace(line[3:])
			tag := `<pre class="code-block"><code>`
			if lang != "" {
				tag = `<pre class="code-block"><code class="language-` + html.EscapeString(lang) + `">`
			}
			open(blockCode, tag)
			continue
		}
		if cur == blockCode {
			b.WriteString(html.EscapeString(line))
			b.WriteString("\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			closeBlock()
		case strings.HasPrefix(line, "---"):
			closeBlock()
			b.WriteString("<hr/>")
		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			if level > 3 || len(line) <= level || line[level] != ' ' {
				open(blockPara, "<p>")
				b.WriteString(Inline(trimmed))
				continue
			}
			closeBlock()
			h := string(rune('0' + level))
			b.WriteString("<h" + h + ">" + Inline(strings.TrimSpace(line[level:])) + "</h" + h + ">")
		case strings.HasPrefix(line, "- "):
			open(blockList, "<ul>")
			b.WriteString("<li>" + Inline(strings.TrimSpace(line[2:])) + "</li>")
		case reOrdered.MatchString(line):
			open(blockOrdered, "<ol>")
			b.WriteString("<li>" + Inline(strings.TrimSpace(reOrdered.ReplaceAllString(line, ""))) + "</li>")
		case strings.HasPrefix(line, "> "):
			open(blockQuote, "<blockquote>")
			b.WriteString(Inline(strings.TrimSpace(line[2:])))
		default:
			if cur == blockPara {
				b.WriteString(" ")
			}
			open(blockPara, "<p>")
			b.WriteString(Inline(trimmed))
		}
	}
	closeBlock()
	return b.String()
}

// Inline escapes s and applies links, inline code, bold and italic.
func Inline(s string) string {
	out := html.EscapeString(s)
	var code []string
	out = reInlineCode.ReplaceAllStringFunc(out, func(m string) string {
		code = append(code, "<code>"+reInlineCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00"
	})
	out = reLink.ReplaceAllStringFunc(out, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		if IsInternal(html.UnescapeString(href)) {
			return `<a href="` + href + `">` + match[1] + `</a>`
		}
		return `<a href="` + href + `" rel="noopener noreferrer">` + match[1] + `</a>`
	})
	out = outsideTags(out, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		return reItalic.ReplaceAllString(seg, "<em>$1</em>")
	})
	for _, c := range code {
		out = strings.Replace(out, "\x00", c, 1)
	}
	return out
}

// outsideTags applies fn to the text between HTML tags so href values are
// never rewritten.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an href, or "" when its scheme is not
// allowed.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	default:
		return ""
	}
}
