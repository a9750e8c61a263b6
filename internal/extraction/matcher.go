package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/williampepple1/coze-template-scraper/internal/config"
)

var leadingDigits = regexp.MustCompile(`^\d+`)

// matcher is a compiled config.FieldMatcher
type matcher struct {
	css      cascadia.Selector
	xpath    *xpath.Expr
	next     bool
	within   cascadia.Selector
	attr     string
	contains string
	regex    *regexp.Regexp
	integer  bool
}

func compileMatcher(name string, fm config.FieldMatcher) (*matcher, error) {
	m := &matcher{
		next:     fm.Next,
		attr:     fm.Attr,
		contains: fm.Contains,
		integer:  fm.Type == "int",
	}

	var err error
	switch {
	case fm.Selector != "":
		if m.css, err = cascadia.Compile(fm.Selector); err != nil {
			return nil, fmt.Errorf("field %s: selector %q: %w", name, fm.Selector, err)
		}
	case fm.XPath != "":
		if m.xpath, err = xpath.Compile(fm.XPath); err != nil {
			return nil, fmt.Errorf("field %s: xpath %q: %w", name, fm.XPath, err)
		}
	case fm.Regex == "":
		return nil, fmt.Errorf("field %s: selector, xpath or regex is required", name)
	}

	if fm.Regex != "" {
		if m.regex, err = regexp.Compile(fm.Regex); err != nil {
			return nil, fmt.Errorf("field %s: regex %q: %w", name, fm.Regex, err)
		}
	}

	if fm.Within != "" {
		if m.within, err = cascadia.Compile(fm.Within); err != nil {
			return nil, fmt.Errorf("field %s: within %q: %w", name, fm.Within, err)
		}
	}
	return m, nil
}

// locate returns every element under card the matcher points at, in document order
func (m *matcher) locate(card *goquery.Selection) *goquery.Selection {
	if m.css != nil {
		return card.FindMatcher(m.css)
	}

	var found *goquery.Selection
	for _, root := range card.Nodes {
		nodes := htmlquery.QuerySelectorAll(root, m.xpath)
		if found == nil {
			found = card.FindNodes(nodes...)
		} else {
			found = found.AddNodes(card.FindNodes(nodes...).Nodes...)
		}
	}
	if found == nil {
		return card.FindNodes()
	}
	return found
}

// text resolves the trimmed value. An empty value counts as missing.
func (m *matcher) text(card *goquery.Selection) (string, bool) {
	if m.css == nil && m.xpath == nil {
		html, err := goquery.OuterHtml(card)
		if err != nil {
			return "", false
		}
		return m.match(html)
	}

	candidates := m.locate(card)
	if m.contains != "" {
		candidates = candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), m.contains)
		})
	}

	target := candidates.First()
	if target.Length() == 0 {
		return "", false
	}
	if m.next {
		target = target.Next()
	}
	if m.within != nil {
		target = target.FindMatcher(m.within).First()
	}
	if target.Length() == 0 {
		return "", false
	}

	var value string
	if m.attr != "" {
		v, ok := target.Attr(m.attr)
		if !ok {
			return "", false
		}
		value = v
	} else {
		value = target.Text()
	}

	if m.regex != nil {
		return m.match(value)
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// match applies the regex to s, keeping the first capture group if any
func (m *matcher) match(s string) (string, bool) {
	found := m.regex.FindStringSubmatch(s)
	if found == nil {
		return "", false
	}
	value := found[0]
	if len(found) > 1 {
		value = found[1]
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// number resolves the value as a non-negative integer
func (m *matcher) number(card *goquery.Selection) (int, bool) {
	value, ok := m.text(card)
	if !ok {
		return 0, false
	}
	return parseCount(value)
}

// parseCount reads the leading base-10 digits, so "42 次" is 42. Thousands
// separators are dropped first: "1,024" is 1024, not 1. Text without leading
// digits is not a count.
func parseCount(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	digits := leadingDigits.FindString(s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
