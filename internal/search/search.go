// Package search maintains a local full-text index over mirrored posts,
// so drafts and published content are searchable offline.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// postDoc is the indexed projection of a post.
type postDoc struct {
	Title    string   `json:"title"`
	Markdown string   `json:"markdown"`
	Excerpt  string   `json:"excerpt"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags"`
}

// Hit is one search result.
type Hit struct {
	PostID    string
	Score     float64
	Fragments map[string][]string
}

// Index wraps the on-disk bleve index.
type Index struct {
	idx bleve.Index
}

func buildMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("markdown", text)
	doc.AddFieldMappingsAt("excerpt", text)
	doc.AddFieldMappingsAt("tags", text)

	status := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt("status", status)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Open opens the index at path, creating it on first use.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// OpenMemOnly builds an in-memory index, used in tests.
func OpenMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx}, nil
}

func (s *Index) Close() error { return s.idx.Close() }

// IndexPost adds or replaces one post in the index.
func (s *Index) IndexPost(p *models.Post) error {
	return s.idx.Index(p.ID, toDoc(p))
}

// DeletePost removes one post from the index.
func (s *Index) DeletePost(id string) error {
	return s.idx.Delete(id)
}

// Reindex replaces the index contents with the given posts in one batch.
func (s *Index) Reindex(posts []models.Post) error {
	batch := s.idx.NewBatch()
	for i := range posts {
		if err := batch.Index(posts[i].ID, toDoc(&posts[i])); err != nil {
			return err
		}
	}
	return s.idx.Batch(batch)
}

// Search runs a query-string query and returns up to limit hits with
// highlighted fragments.
func (s *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Highlight = bleve.NewHighlight()
	req.Fields = []string{"title", "status"}

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{PostID: h.ID, Score: h.Score, Fragments: h.Fragments})
	}
	return hits, nil
}

func toDoc(p *models.Post) postDoc {
	doc := postDoc{
		Title:    p.Title,
		Markdown: p.Markdown,
		Status:   string(p.Status),
	}
	if p.CustomExcerpt != nil {
		doc.Excerpt = *p.CustomExcerpt
	}
	for _, t := range p.Tags {
		doc.Tags = append(doc.Tags, t.Name)
	}
	return doc
}
