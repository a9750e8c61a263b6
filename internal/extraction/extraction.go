package extraction

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

var knownFields = map[string]bool{
	config.FieldBackgroundImage: true,
	config.FieldApplicationType: true,
	config.FieldTitle:           true,
	config.FieldAuthor:          true,
	config.FieldDescription:     true,
	config.FieldPrice:           true,
	config.FieldCopyCount:       true,
}

// Extractor turns template cards into records
type Extractor struct {
	Config *config.ExtractionConfig
	card   cascadia.Selector
	fields map[string]*matcher
}

// NewExtractor compiles the matcher table. Bad selectors are reported here so
// that extraction itself never fails.
func NewExtractor(cfg *config.ExtractionConfig) (*Extractor, error) {
	card, err := cascadia.Compile(cfg.Card)
	if err != nil {
		return nil, fmt.Errorf("card selector %q: %w", cfg.Card, err)
	}

	fields := make(map[string]*matcher, len(cfg.Fields))
	for name, fm := range cfg.Fields {
		if !knownFields[name] {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		m, err := compileMatcher(name, fm)
		if err != nil {
			return nil, err
		}
		fields[name] = m
	}

	return &Extractor{
		Config: cfg,
		card:   card,
		fields: fields,
	}, nil
}

// Extract returns one record per card, in document order. A page without
// cards yields an empty slice.
func (e *Extractor) Extract(doc *goquery.Document) []models.Record {
	records := []models.Record{}
	doc.FindMatcher(e.card).Each(func(_ int, card *goquery.Selection) {
		records = append(records, e.ExtractCard(card))
	})
	return records
}

// ExtractCard resolves every field of a single card. Fields whose element is
// missing stay nil.
func (e *Extractor) ExtractCard(card *goquery.Selection) models.Record {
	return models.Record{
		BackgroundImage: e.text(card, config.FieldBackgroundImage),
		ApplicationType: e.text(card, config.FieldApplicationType),
		Title:           e.text(card, config.FieldTitle),
		Author:          e.text(card, config.FieldAuthor),
		Description:     e.text(card, config.FieldDescription),
		Price:           e.text(card, config.FieldPrice),
		CopyCount:       e.number(card, config.FieldCopyCount),
	}
}

func (e *Extractor) text(card *goquery.Selection, field string) *string {
	m, ok := e.fields[field]
	if !ok {
		return nil
	}
	value, ok := m.text(card)
	if !ok {
		return nil
	}
	return &value
}

func (e *Extractor) number(card *goquery.Selection, field string) *int {
	m, ok := e.fields[field]
	if !ok {
		return nil
	}
	n, ok := m.number(card)
	if !ok {
		return nil
	}
	return &n
}
