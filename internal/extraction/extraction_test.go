package extraction_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/internal/extraction"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

const fullCard = `
<article>
  <div><div><img src="https://cdn.coze.cn/bg/1.png"></div></div>
  <div class="semi-tag"><div class="semi-tag-content">免费</div></div>
  <div class="semi-tag"><div class="semi-tag-content"> 智能体 </div></div>
  <span class="semi-typography-ellipsis"><span> Helper Bot </span></span>
  <div class="author">
    <div class="semi-image" style="width: 14px; height: 14px"><img src="avatar.png"></div>
    <div><span><span> Jane </span></span></div>
  </div>
  <span class="semi-typography-ellipsis-multiple-line"><span>Answers questions</span></span>
  <div class="font-medium"> ¥9.9 </div>
  <div class="flex items-center"><span>42</span><span>7</span></div>
</article>`

func newDocument(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return doc
}

func newExtractor(t *testing.T, cfg *config.ExtractionConfig) *extraction.Extractor {
	t.Helper()
	if cfg == nil {
		cfg = &config.ExtractionConfig{Card: config.DefaultCardSelector, Fields: config.DefaultFields()}
	}
	e, err := extraction.NewExtractor(cfg)
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	type TestCase struct {
		description string
		body        string
		want        []models.Record
	}
	testCases := []TestCase{
		{
			description: "page without cards yields no records",
			body:        "<div><p>Nothing here</p></div>",
			want:        []models.Record{},
		},
		{
			description: "all fields present",
			body:        fullCard,
			want: []models.Record{{
				BackgroundImage: models.String("https://cdn.coze.cn/bg/1.png"),
				ApplicationType: models.String("智能体"),
				Title:           models.String("Helper Bot"),
				Author:          models.String("Jane"),
				Description:     models.String("Answers questions"),
				Price:           models.String("¥9.9"),
				CopyCount:       models.Int(42),
			}},
		},
		{
			description: "missing elements resolve to nil fields",
			body: `<article>
				<span class="semi-typography-ellipsis"><span>Helper Bot</span></span>
				<div class="semi-image" style="width: 14px"></div><div><span><span>Jane</span></span></div>
				<div class="flex items-center"><span>42</span></div>
			</article>`,
			want: []models.Record{{
				Title:     models.String("Helper Bot"),
				Author:    models.String("Jane"),
				CopyCount: models.Int(42),
			}},
		},
		{
			description: "empty card still yields a record",
			body:        "<article></article>",
			want:        []models.Record{{}},
		},
		{
			description: "records keep document order",
			body: `<article><span class="semi-typography-ellipsis"><span>First</span></span></article>
				<section><article><span class="semi-typography-ellipsis"><span>Second</span></span></article></section>
				<article><span class="semi-typography-ellipsis"><span>Third</span></span></article>`,
			want: []models.Record{
				{Title: models.String("First")},
				{Title: models.String("Second")},
				{Title: models.String("Third")},
			},
		},
		{
			description: "tags without the agent marker are skipped",
			body:        `<article><div class="semi-tag-content">插件</div><div class="semi-tag-content">工作流</div></article>`,
			want:        []models.Record{{}},
		},
		{
			description: "avatar of another size does not locate the author",
			body:        `<article><div class="semi-image" style="width: 24px"></div><div><span><span>Jane</span></span></div></article>`,
			want:        []models.Record{{}},
		},
		{
			description: "author span must be nested twice",
			body:        `<article><div class="semi-image" style="width: 14px"></div><div><span>Jane</span></div></article>`,
			want:        []models.Record{{}},
		},
		{
			description: "image without src has no background",
			body:        `<article><div><div><img alt="x"></div></div></article>`,
			want:        []models.Record{{}},
		},
		{
			description: "whitespace-only text counts as missing",
			body:        `<article><div class="font-medium">   </div></article>`,
			want:        []models.Record{{}},
		},
	}

	extractor := newExtractor(t, nil)
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			got := extractor.Extract(newDocument(t, testCase.body))
			if diff := cmp.Diff(testCase.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractCopyCount(t *testing.T) {
	type TestCase struct {
		description string
		stat        string
		want        *int
	}
	testCases := []TestCase{
		{description: "plain number", stat: "42", want: models.Int(42)},
		{description: "surrounding whitespace", stat: "  7 ", want: models.Int(7)},
		{description: "trailing unit", stat: "128 次", want: models.Int(128)},
		{description: "thousands separator is dropped, not cut at", stat: "1,024", want: models.Int(1024)},
		{description: "zero is kept", stat: "0", want: models.Int(0)},
		{description: "no leading digits", stat: "很多", want: nil},
		{description: "empty", stat: "", want: nil},
	}

	extractor := newExtractor(t, nil)
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			body := `<article><div class="flex items-center"><span>` + testCase.stat + `</span></div></article>`
			got := extractor.Extract(newDocument(t, body))
			require.Len(t, got, 1)
			assert.Equal(t, testCase.want, got[0].CopyCount)
		})
	}
}

func TestExtractCardCount(t *testing.T) {
	extractor := newExtractor(t, nil)
	for _, n := range []int{0, 1, 5, 30} {
		got := extractor.Extract(newDocument(t, strings.Repeat(fullCard, n)))
		assert.Len(t, got, n)
	}
}

func TestExtractXPathMatcher(t *testing.T) {
	cfg := &config.ExtractionConfig{
		Card: "li.card",
		Fields: map[string]config.FieldMatcher{
			config.FieldTitle:     {XPath: ".//h3"},
			config.FieldPrice:     {XPath: ".//*[contains(@class,'price')]"},
			config.FieldCopyCount: {XPath: ".//em", Type: "int"},
		},
	}
	extractor := newExtractor(t, cfg)

	doc := newDocument(t, `<ul>
		<li class="card"><h3>One</h3><p class="price">Free</p><em>3</em></li>
		<li class="card"><h3>Two</h3></li>
	</ul>`)

	want := []models.Record{
		{Title: models.String("One"), Price: models.String("Free"), CopyCount: models.Int(3)},
		{Title: models.String("Two")},
	}
	if diff := cmp.Diff(want, extractor.Extract(doc)); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRegexMatcher(t *testing.T) {
	cfg := &config.ExtractionConfig{
		Card: "li.card",
		Fields: map[string]config.FieldMatcher{
			config.FieldTitle:     {Selector: "h3"},
			config.FieldPrice:     {Regex: `data-id="([^"]+)"`},
			config.FieldCopyCount: {Selector: "p", Regex: `复制\s*([\d,]+)`, Type: "int"},
		},
	}
	extractor := newExtractor(t, cfg)

	doc := newDocument(t, `<ul>
		<li class="card" data-id="t-17"><h3>One</h3><p>复制 1,024 次</p></li>
		<li class="card"><h3>Two</h3><p>new</p></li>
	</ul>`)

	want := []models.Record{
		{Title: models.String("One"), Price: models.String("t-17"), CopyCount: models.Int(1024)},
		{Title: models.String("Two")},
	}
	if diff := cmp.Diff(want, extractor.Extract(doc)); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewExtractorRejectsBadTable(t *testing.T) {
	testCases := map[string]*config.ExtractionConfig{
		"bad card selector": {Card: "article[", Fields: config.DefaultFields()},
		"bad field selector": {Card: "article", Fields: map[string]config.FieldMatcher{
			config.FieldTitle: {Selector: "span:::"},
		}},
		"bad xpath": {Card: "article", Fields: map[string]config.FieldMatcher{
			config.FieldTitle: {XPath: "//span["},
		}},
		"bad within": {Card: "article", Fields: map[string]config.FieldMatcher{
			config.FieldAuthor: {Selector: "div", Within: "span[unclosed"},
		}},
		"bad regex": {Card: "article", Fields: map[string]config.FieldMatcher{
			config.FieldPrice: {Regex: "([0-9]+"},
		}},
		"unknown field": {Card: "article", Fields: map[string]config.FieldMatcher{
			"rating": {Selector: "span"},
		}},
		"empty matcher": {Card: "article", Fields: map[string]config.FieldMatcher{
			config.FieldTitle: {},
		}},
	}

	for description, cfg := range testCases {
		t.Run(description, func(t *testing.T) {
			_, err := extraction.NewExtractor(cfg)
			assert.Error(t, err)
		})
	}
}
