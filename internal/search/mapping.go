package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for shelf documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on titles and authors with English stemming
//  2. Exact keyword matching for user scope and shelf filters
//  3. Numeric sorting by page count and recency
//  4. Term vectors on title/author for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Use English analyzer as default for text fields
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Author - searchable, second in relevance
	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Publisher - searchable with simple analyzer (no stemming)
	publisherFieldMapping := bleve.NewTextFieldMapping()
	publisherFieldMapping.Analyzer = simple.Name
	publisherFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("publisher", publisherFieldMapping)

	// --- Keyword fields (exact match) ---

	// User ID - every query filters on this
	userFieldMapping := bleve.NewTextFieldMapping()
	userFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("user_id", userFieldMapping)

	// Book ID - stored for result lookup, not analyzed
	bookIDFieldMapping := bleve.NewTextFieldMapping()
	bookIDFieldMapping.Analyzer = keyword.Name
	bookIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("book_id", bookIDFieldMapping)

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Shelf - for filtering by shelf name
	shelfFieldMapping := bleve.NewTextFieldMapping()
	shelfFieldMapping.Analyzer = keyword.Name
	shelfFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("shelf", shelfFieldMapping)

	// Categories - keyword analyzer keeps multi-word genres intact
	// (e.g., "Science Fiction")
	categoriesFieldMapping := bleve.NewTextFieldMapping()
	categoriesFieldMapping.Analyzer = keyword.Name
	categoriesFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("categories", categoriesFieldMapping)

	// --- Numeric fields (sorting) ---

	pageCountFieldMapping := bleve.NewNumericFieldMapping()
	pageCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("page_count", pageCountFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
