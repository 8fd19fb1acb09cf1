package htmlpage

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
)

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, key, def string) string {
	if v, ok := attr(n, key); ok {
		return v
	}
	return def
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// nonRendered elements never display their contents.
func nonRendered(n *html.Node) bool {
	return isElement(n, "head", "script", "style", "template", "title", "noscript")
}

// elements returns every element in document order, skipping subtrees that
// never render.
func elements(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if nonRendered(n) {
				return
			}
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func byID(root *html.Node, id string) *html.Node {
	for _, n := range elements(root) {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	return nil
}

func hiddenByStyle(n *html.Node) bool {
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// visible reports whether n and all of its ancestors render.
func visible(n *html.Node) bool {
	if isElement(n, "input") && strings.EqualFold(attrOr(n, "type", ""), "hidden") {
		return false
	}
	for e := n; e != nil; e = e.Parent {
		if e.Type != html.ElementNode {
			continue
		}
		if nonRendered(e) {
			return false
		}
		if _, ok := attr(e, "hidden"); ok {
			return false
		}
		if hiddenByStyle(e) {
			return false
		}
	}
	return true
}

// textContent concatenates descendant text, skipping non-rendered subtrees.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && nonRendered(n):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return browser.NormalizeSpace(b.String())
}

func inputType(n *html.Node) string {
	return strings.ToLower(attrOr(n, "type", "text"))
}

// role returns the element's explicit or implicit ARIA role.
func role(n *html.Node) string {
	if r, ok := attr(n, "role"); ok {
		return strings.ToLower(strings.TrimSpace(r))
	}
	switch n.Data {
	case "button":
		return "button"
	case "input":
		switch inputType(n) {
		case "submit", "button", "reset", "image":
			return "button"
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "text", "email", "search", "tel", "url", "":
			return "textbox"
		}
	case "textarea":
		return "textbox"
	case "a":
		if _, ok := attr(n, "href"); ok {
			return "link"
		}
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "select":
		return "combobox"
	case "ul", "ol":
		return "list"
	case "li":
		return "listitem"
	}
	return ""
}

// accessibleName approximates the accessible name computation for the
// roles role reports.
func accessibleName(n *html.Node) string {
	if v, ok := attr(n, "aria-label"); ok {
		return browser.NormalizeSpace(v)
	}
	if n.Data == "input" {
		switch inputType(n) {
		case "submit", "button", "reset":
			return browser.NormalizeSpace(attrOr(n, "value", ""))
		}
		if v, ok := attr(n, "title"); ok {
			return browser.NormalizeSpace(v)
		}
		return browser.NormalizeSpace(attrOr(n, "placeholder", ""))
	}
	if name := textContent(n); name != "" {
		return name
	}
	return browser.NormalizeSpace(attrOr(n, "title", ""))
}

// valueOf is the current value of a form control.
func valueOf(n *html.Node) string {
	if n.Data == "textarea" {
		return textContent(n)
	}
	return attrOr(n, "value", "")
}

// observedText is what an Observation reports for n.
func observedText(n *html.Node) string {
	switch n.Data {
	case "input", "textarea":
		return valueOf(n)
	}
	return textContent(n)
}

// resolve returns the elements loc matches, in document order, ignoring any
// ordinal. Role queries skip hidden elements; the other strategies do not.
func resolve(doc *html.Node, loc browser.Locator) []*html.Node {
	if doc == nil {
		return nil
	}
	all := elements(doc)
	var out []*html.Node

	switch loc.Strategy() {
	case browser.StrategyTestID:
		for _, n := range all {
			if v, ok := attr(n, "data-testid"); ok && v == loc.TestID {
				out = append(out, n)
			}
		}
	case browser.StrategyRole:
		want := strings.ToLower(loc.Role)
		for _, n := range all {
			if role(n) != want || !visible(n) {
				continue
			}
			if loc.Name != "" && !browser.MatchText(accessibleName(n), loc.Name, loc.Exact) {
				continue
			}
			out = append(out, n)
		}
	case browser.StrategyPlaceholder:
		for _, n := range all {
			if v, ok := attr(n, "placeholder"); ok && browser.MatchText(v, loc.Placeholder, loc.Exact) {
				out = append(out, n)
			}
		}
	case browser.StrategyText:
		matched := make(map[*html.Node]bool)
		for _, n := range all {
			if isElement(n, "html", "body") {
				continue
			}
			if browser.MatchText(textContent(n), loc.Text, loc.Exact) {
				matched[n] = true
			}
		}
		// keep only the innermost matches
		for _, n := range all {
			if !matched[n] {
				continue
			}
			inner := false
			for c := n.FirstChild; c != nil && !inner; c = c.NextSibling {
				inner = containsMatch(c, matched)
			}
			if !inner {
				out = append(out, n)
			}
		}
	}
	return out
}

func containsMatch(n *html.Node, matched map[*html.Node]bool) bool {
	if matched[n] {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsMatch(c, matched) {
			return true
		}
	}
	return false
}

// observe describes loc's matches as an Observation and returns the target.
func observe(doc *html.Node, loc browser.Locator) (browser.Observation, *html.Node) {
	matches := resolve(doc, loc)
	obs := browser.Observation{Count: len(matches)}

	idx, _ := loc.Index()
	if idx < 0 || idx >= len(matches) {
		return obs, nil
	}
	target := matches[idx]
	obs.Attached = true
	obs.Visible = visible(target)
	obs.Text = observedText(target)
	return obs, target
}

// closest returns the nearest ancestor-or-self element with tag.
func closest(n *html.Node, tag string) *html.Node {
	for e := n; e != nil; e = e.Parent {
		if isElement(e, tag) {
			return e
		}
	}
	return nil
}
