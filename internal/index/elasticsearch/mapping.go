package elasticsearch

// DefaultIndexName is the Elasticsearch index holding storefront products.
const DefaultIndexName = "storefront_products"

// maxResultWindow mirrors index.max_result_window in the mapping below.
const maxResultWindow = 10000

// suggestContext is the completion context used to restrict suggestions to
// a category.
const suggestContext = "category"

// buildIndexMapping returns the settings and mapping of the products index.
// Text fields carry a keyword sub-field for exact filters and sorting; the
// suggest completion field is fed from name and brand.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "max_result_window": 10000,
    "analysis": {
      "analyzer": {
        "product_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "dynamic": false,
    "properties": {
      "id":            { "type": "keyword" },
      "name":          { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":   { "type": "text", "analyzer": "product_text" },
      "brand":         { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "category":      { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "subcategory":   { "type": "keyword" },
      "price":         { "type": "double" },
      "originalPrice": { "type": "double" },
      "discount":      { "type": "integer" },
      "stock":         { "type": "integer" },
      "inStock":       { "type": "boolean" },
      "rating":        { "type": "float" },
      "reviewCount":   { "type": "integer" },
      "image":         { "type": "keyword", "index": false },
      "images":        { "type": "keyword", "index": false },
      "sku":           { "type": "keyword" },
      "tags":          { "type": "text", "analyzer": "product_text", "fields": { "keyword": { "type": "keyword" } } },
      "ingredients":   { "type": "text", "analyzer": "product_text" },
      "isFeatured":    { "type": "boolean" },
      "isNewArrival":  { "type": "boolean" },
      "isFlashSale":   { "type": "boolean" },
      "isFavourite":   { "type": "boolean" },
      "isRecommended": { "type": "boolean" },
      "isForYou":      { "type": "boolean" },
      "createdAt":     { "type": "date" },
      "updatedAt":     { "type": "date" },
      "suggest": {
        "type": "completion",
        "analyzer": "simple",
        "contexts": [ { "name": "category", "type": "category" } ]
      }
    }
  }
}`
}
