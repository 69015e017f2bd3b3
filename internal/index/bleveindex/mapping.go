package bleveindex

import (
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/glowcart/storefront-search/internal/domain"
)

// Index-only fields that are not part of SearchDocument.
const (
	fieldCategoryExact = "categoryExact"
	fieldSuggest       = "suggest"
	fieldSource        = "source"
)

// completionAnalyzer keeps the whole input as one lower-cased token so that a
// prefix query behaves like an Elasticsearch completion suggester.
const completionAnalyzer = "completion_keyword"

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	if err := im.AddCustomAnalyzer(completionAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("register completion analyzer: %w", err)
	}

	doc := bleve.NewDocumentStaticMapping()

	text := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.IncludeInAll = false
		return fm
	}
	keyword := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		return fm
	}
	numeric := func() *mapping.FieldMapping {
		fm := bleve.NewNumericFieldMapping()
		fm.IncludeInAll = false
		return fm
	}

	doc.AddFieldMappingsAt(domain.FieldID, keyword())
	doc.AddFieldMappingsAt(domain.FieldName, text())
	doc.AddFieldMappingsAt(domain.FieldBrand, text())
	doc.AddFieldMappingsAt(domain.FieldDescription, text())
	doc.AddFieldMappingsAt(domain.FieldTags, text())
	doc.AddFieldMappingsAt(domain.FieldIngredients, text())

	categoryExact := keyword()
	categoryExact.Name = fieldCategoryExact
	doc.AddFieldMappingsAt(domain.FieldCategory, text(), categoryExact)
	doc.AddFieldMappingsAt(domain.FieldSubcategory, keyword())

	doc.AddFieldMappingsAt(domain.FieldPrice, numeric())
	doc.AddFieldMappingsAt(domain.FieldRating, numeric())

	inStock := bleve.NewBooleanFieldMapping()
	inStock.IncludeInAll = false
	doc.AddFieldMappingsAt(domain.FieldInStock, inStock)

	createdAt := bleve.NewDateTimeFieldMapping()
	createdAt.IncludeInAll = false
	doc.AddFieldMappingsAt(domain.FieldCreatedAt, createdAt)

	suggest := bleve.NewTextFieldMapping()
	suggest.Analyzer = completionAnalyzer
	suggest.IncludeInAll = false
	doc.AddFieldMappingsAt(fieldSuggest, suggest)

	source := bleve.NewTextFieldMapping()
	source.Index = false
	source.Store = true
	source.IncludeInAll = false
	source.IncludeTermVectors = false
	source.DocValues = false
	doc.AddFieldMappingsAt(fieldSource, source)

	im.DefaultMapping = doc
	return im, nil
}

// indexedDocument is the shape handed to bleve: the mapped fields plus the
// stored JSON source used to rebuild hits.
func indexedDocument(d domain.SearchDocument) (map[string]interface{}, error) {
	source, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", d.ID, err)
	}

	suggest := []string{d.Name}
	if d.Brand != "" {
		suggest = append(suggest, d.Brand)
	}

	return map[string]interface{}{
		domain.FieldID:          d.ID,
		domain.FieldName:        d.Name,
		domain.FieldBrand:       d.Brand,
		domain.FieldDescription: d.Description,
		domain.FieldTags:        d.Tags,
		domain.FieldIngredients: d.Ingredients,
		domain.FieldCategory:    d.Category,
		domain.FieldSubcategory: d.Subcategory,
		domain.FieldPrice:       d.Price,
		domain.FieldRating:      d.Rating,
		domain.FieldInStock:     d.InStock,
		domain.FieldCreatedAt:   d.CreatedAt,
		fieldSuggest:            suggest,
		fieldSource:             string(source),
	}, nil
}
