package domscan

import (
	"strings"

	"golang.org/x/net/html"
)

// structuralTags are non-content elements never scanned for clause text.
var structuralTags = map[string]bool{
	"html": true, "head": true, "meta": true, "link": true, "title": true,
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true, "svg": true, "canvas": true, "object": true,
	"embed": true, "img": true, "video": true, "audio": true, "source": true,
	"br": true, "hr": true, "base": true,
}

// formControlTags are interactive form elements excluded from scanning.
var formControlTags = map[string]bool{
	"input": true, "textarea": true, "select": true, "option": true,
	"optgroup": true, "button": true, "datalist": true,
}

// inlineTags are elements whose text counts toward the enclosing block's
// direct text. Anything else is treated as block-level and scanned on its
// own.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true,
	"cite": true, "code": true, "data": true, "dfn": true, "em": true,
	"i": true, "kbd": true, "mark": true, "q": true, "s": true,
	"samp": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true, "wbr": true,
}

// hiddenStyleFragments are inline style substrings that make an element
// invisible. Whitespace inside declarations is stripped before comparison.
var hiddenStyleFragments = []string{
	"display:none",
	"visibility:hidden",
	"opacity:0",
}

// eligible reports whether an element should be scanned: visible, a content
// tag, not a form control, and not already marked scanned.
func (l *Locator) eligible(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	if structuralTags[node.Data] || formControlTags[node.Data] {
		return false
	}
	if hasAttr(node, AttrScanned) {
		return false
	}
	if node.Data == markTag && hasAttr(node, AttrConfidence) {
		return false
	}
	for n := node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && !visible(n) {
			return false
		}
	}
	return true
}

// visible checks the element's own hidden attribute and inline style. There
// is no layout engine here, so computed styles reduce to what the markup
// declares.
func visible(node *html.Node) bool {
	if hasAttr(node, "hidden") {
		return false
	}
	style := strings.ToLower(getAttr(node, "style"))
	if style == "" {
		return true
	}
	style = strings.ReplaceAll(style, " ", "")
	for _, fragment := range hiddenStyleFragments {
		if strings.Contains(style, fragment) {
			return false
		}
	}
	return true
}

// nodeDepth returns the number of ancestors above the node.
func nodeDepth(node *html.Node) int {
	depth := 0
	for n := node.Parent; n != nil; n = n.Parent {
		depth++
	}
	return depth
}

// hasAttr reports whether the node carries the attribute.
func hasAttr(node *html.Node, key string) bool {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// getAttr returns the attribute value, or "" if absent.
func getAttr(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// setAttr sets or replaces an attribute on the node.
func setAttr(node *html.Node, key, val string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = val
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: val})
}

// removeAttr deletes an attribute from the node if present.
func removeAttr(node *html.Node, key string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr = append(node.Attr[:i], node.Attr[i+1:]...)
			return
		}
	}
}

// hideNode suppresses an element from layout by appending display:none to
// its inline style.
func hideNode(node *html.Node) {
	style := getAttr(node, "style")
	if style != "" && !strings.HasSuffix(strings.TrimSpace(style), ";") {
		style += ";"
	}
	setAttr(node, "style", style+"display:none")
}

// unwrap replaces an element with its own children, preserving order.
func unwrap(node *html.Node) {
	parent := node.Parent
	if parent == nil {
		return
	}
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		node.RemoveChild(child)
		parent.InsertBefore(child, node)
		child = next
	}
	parent.RemoveChild(node)
}
