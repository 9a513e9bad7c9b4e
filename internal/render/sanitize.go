/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strings"

	"golang.org/x/net/html"
)

// Tags kept as markup. Anything else is unwrapped: the tag goes, its text stays.
var allowedTags = map[string]bool{
	"a": true, "b": true, "blockquote": true, "br": true, "code": true, "div": true,
	"em": true, "figcaption": true, "figure": true, "font": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "i": true, "iframe": true,
	"img": true, "li": true, "mark": true, "ol": true, "p": true, "pre": true, "s": true,
	"small": true, "span": true, "strike": true, "strong": true, "sub": true, "sup": true,
	"table": true, "tbody": true, "td": true, "th": true, "thead": true, "tr": true,
	"u": true, "ul": true,
}

// Tags dropped together with everything inside them.
var droppedTags = map[string]bool{
	"script": true, "style": true, "object": true, "embed": true, "applet": true,
	"noscript": true, "template": true, "head": true, "title": true, "link": true,
	"meta": true, "base": true, "form": true, "frame": true, "frameset": true,
	"svg": true, "math": true,
}

var voidTags = map[string]bool{"br": true, "hr": true, "img": true}

var globalAttrs = map[string]bool{"class": true, "style": true, "title": true, "align": true, "dir": true}

var tagAttrs = map[string]map[string]bool{
	"a":      {"href": true, "target": true},
	"img":    {"src": true, "alt": true, "width": true, "height": true},
	"iframe": {"src": true, "width": true, "height": true, "allow": true, "allowfullscreen": true, "frameborder": true, "loading": true, "referrerpolicy": true},
	"td":     {"colspan": true, "rowspan": true},
	"th":     {"colspan": true, "rowspan": true, "scope": true},
	"font":   {"color": true, "size": true, "face": true},
	"ol":     {"start": true},
}

var allowedStyleProps = map[string]bool{
	"color": true, "background-color": true, "font-size": true, "font-weight": true,
	"font-style": true, "font-family": true, "text-align": true, "text-decoration": true,
	"line-height": true, "letter-spacing": true, "width": true, "height": true,
	"max-width": true, "margin": true, "margin-top": true, "margin-bottom": true,
	"margin-left": true, "margin-right": true, "padding": true, "border": true,
	"border-color": true, "border-width": true, "border-style": true, "border-radius": true,
	"vertical-align": true, "white-space": true,
}

// Sanitize filters untrusted rich markup down to an allowlist of formatting tags
// and attributes. Scripts, styles, plugins, event handlers and non-http(s) URLs
// are removed; an iframe survives only when its src is http(s). The result is
// always well formed: unclosed tags are closed at the end.
func Sanitize(markup string) string {
	if markup == "" {
		return ""
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	var open []string
	skip := ""
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a tokenizer error; either way the input is exhausted
			break
		}
		tok := z.Token()
		name := tok.Data

		if skip != "" {
			switch {
			case tt == html.StartTagToken && name == skip:
				skipDepth++
			case tt == html.EndTagToken && name == skip:
				skipDepth--
				if skipDepth == 0 {
					skip = ""
				}
			}
			continue
		}

		switch tt {
		case html.TextToken:
			b.WriteString(html.EscapeString(tok.Data))
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedTags[name] || (name == "iframe" && !hasSafeSrc(tok)) {
				if tt == html.StartTagToken && !voidTags[name] && name != "link" && name != "meta" && name != "base" {
					skip, skipDepth = name, 1
				}
				continue
			}
			if !allowedTags[name] {
				continue
			}
			writeStartTag(&b, tok)
			if tt == html.StartTagToken && !voidTags[name] {
				open = append(open, name)
			}
		case html.EndTagToken:
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] != name {
					continue
				}
				for j := len(open) - 1; j >= i; j-- {
					b.WriteString("</" + open[j] + ">")
				}
				open = open[:i]
				break
			}
		}
	}
	for j := len(open) - 1; j >= 0; j-- {
		b.WriteString("</" + open[j] + ">")
	}
	return b.String()
}

func writeStartTag(b *strings.Builder, tok html.Token) {
	b.WriteString("<" + tok.Data)
	for _, a := range tok.Attr {
		key := strings.ToLower(a.Key)
		if a.Namespace != "" || !(globalAttrs[key] || tagAttrs[tok.Data][key]) {
			continue
		}
		val := a.Val
		switch key {
		case "href":
			if !safeURL(val, false) {
				continue
			}
		case "src":
			if !safeURL(val, tok.Data == "img") {
				continue
			}
			if tok.Data == "iframe" && !isHTTP(val) {
				continue
			}
		case "style":
			val = sanitizeStyle(val)
			if val == "" {
				continue
			}
		}
		b.WriteString(" " + key + `="` + html.EscapeString(val) + `"`)
	}
	if tok.Data == "a" {
		b.WriteString(` rel="noopener noreferrer"`)
	}
	b.WriteString(">")
}

func hasSafeSrc(tok html.Token) bool {
	for _, a := range tok.Attr {
		if strings.ToLower(a.Key) == "src" {
			return isHTTP(a.Val)
		}
	}
	return false
}

// safeURL accepts http(s), mailto and relative references. Image data URLs are
// accepted when allowImageData is set.
func safeURL(raw string, allowImageData bool) bool {
	u := normalizeURL(raw)
	if u == "" {
		return false
	}
	scheme := urlScheme(u)
	switch scheme {
	case "":
		return true
	case "http", "https", "mailto":
		return true
	case "data":
		return allowImageData && strings.HasPrefix(u, "data:image/")
	}
	return false
}

func isHTTP(raw string) bool {
	s := urlScheme(normalizeURL(raw))
	return s == "http" || s == "https"
}

// normalizeURL lowercases the scheme and strips the whitespace and control
// characters browsers ignore inside one ("java\tscript:").
func normalizeURL(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r <= ' ' || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func urlScheme(u string) string {
	for i, r := range u {
		switch {
		case r == ':':
			return strings.ToLower(u[:i])
		case r == '/' || r == '?' || r == '#':
			return ""
		}
	}
	return ""
}

func sanitizeStyle(style string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if !allowedStyleProps[k] || !safeCSSValue(v) {
			continue
		}
		kept = append(kept, k+": "+v)
	}
	return strings.Join(kept, "; ")
}

func safeCSSValue(v string) bool {
	if v == "" {
		return false
	}
	l := strings.ToLower(v)
	for _, bad := range []string{"url(", "expression", "javascript", "\\", "<", ">", "@import", "/*"} {
		if strings.Contains(l, bad) {
			return false
		}
	}
	return true
}

// cssValue returns v when it is safe inside a style attribute, def otherwise.
func cssValue(v, def string) string {
	v = strings.TrimSpace(v)
	if !safeCSSValue(v) || strings.ContainsAny(v, ";\"'{}") {
		return def
	}
	return v
}
