package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "catalog_products"

// buildIndexMapping returns the index settings and mapping. Facet and filter
// fields are keywords; free-text fields carry a folding analyzer so accented
// and unaccented spellings match.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "folding": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "analyzer": "folding", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "folding" } } },
      "slug":              { "type": "keyword" },
      "ean":               { "type": "keyword" },
      "description":       { "type": "text", "analyzer": "folding" },
      "manufacturer_id":   { "type": "keyword" },
      "manufacturer_name": { "type": "keyword", "fields": { "text": { "type": "text", "analyzer": "folding" } } },
      "manufacturer_slug": { "type": "keyword" },
      "distributor_names": { "type": "keyword" },
      "skus":              { "type": "keyword" },
      "created_at":        { "type": "long" }
    }
  }
}`
}
