// Package markup turns rendered HTML into structured records using CSS
// selector rules. It performs no I/O.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule extracts one named field from each matched item.
type Rule struct {
	Name     string
	Selector string // relative to the item; empty targets the item itself
	Attr     string // empty reads the trimmed text
	Multiple bool   // collect every match instead of the first
	// Transform post-processes each extracted value. Empty results are dropped.
	Transform func(string) string
}

// Record holds the values extracted for one item, keyed by rule name.
type Record map[string][]string

// First returns the first value of a field, or "".
func (r Record) First(name string) string {
	if vs := r[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Extract parses html and applies rules to every element matching itemSelector.
// Items appear in document order. Fields with no value are absent from the record.
func Extract(html, itemSelector string, rules []Rule) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	var records []Record
	doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		rec := make(Record, len(rules))
		for _, rule := range rules {
			if vs := apply(item, rule); len(vs) > 0 {
				rec[rule.Name] = vs
			}
		}
		records = append(records, rec)
	})
	return records, nil
}

func apply(item *goquery.Selection, rule Rule) []string {
	sel := item
	if rule.Selector != "" {
		sel = item.Find(rule.Selector)
	}
	if !rule.Multiple {
		sel = sel.First()
	}

	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		var v string
		if rule.Attr == "" {
			v = CleanText(s.Text())
		} else {
			attr, ok := s.Attr(rule.Attr)
			if !ok {
				return
			}
			v = strings.TrimSpace(attr)
		}
		if rule.Transform != nil {
			v = rule.Transform(v)
		}
		if v != "" {
			out = append(out, v)
		}
	})
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

var styleURL = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

// StyleURL returns the first url(...) reference of an inline style, such as a
// background-image poster, or "" when there is none.
func StyleURL(style string) string {
	m := styleURL.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
