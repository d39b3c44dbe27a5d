package display

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// urlAttrs are attributes a browser resolves as a URL
var urlAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"poster":     true,
	"background": true,
	"data":       true,
	"cite":       true,
	"xlink:href": true,
}

// Sanitize drops script-capable content from an HTML fragment: <script>,
// <iframe>, <object>, <embed>, <meta> and <base> elements, on* handler
// attributes and javascript: or vbscript: URLs in any URL attribute.
// Everything else is kept as parsed.
func Sanitize(markup string) (string, error) {
	nodes, err := ParseFragment(markup)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if dropElement(n) {
			continue
		}
		scrub(n)
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render fragment: %w", err)
		}
	}
	return buf.String(), nil
}

func dropElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Iframe, atom.Object, atom.Embed, atom.Meta, atom.Base:
		return true
	}
	return false
}

// scriptURL reports whether a browser would run v as script. Browsers drop
// tabs, newlines and other control characters before reading the scheme.
func scriptURL(v string) bool {
	v = strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, v)
	v = strings.ToLower(v)
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:")
}

func scrub(n *html.Node) {
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if a.Namespace != "" {
				key = strings.ToLower(a.Namespace) + ":" + key
			}
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (urlAttrs[key] || urlAttrs[strings.ToLower(a.Key)]) && scriptURL(a.Val) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if dropElement(c) {
			n.RemoveChild(c)
		} else {
			scrub(c)
		}
		c = next
	}
}
