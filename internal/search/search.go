// Package search maintains a full-text index over saved transcript rows.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/project"
)

// rowDocument is the indexed form of one transcript row.
type rowDocument struct {
	OwnerID   string `json:"owner_id"`
	ProjectID string `json:"project_id"`
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// Hit is one matching transcript row.
type Hit struct {
	ProjectID string  `json:"projectId"`
	Timestamp string  `json:"timestamp"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// Index wraps the bleve index over transcript rows.
type Index struct {
	idx bleve.Index
}

// indexMapping indexes the id fields with the keyword analyzer so term
// queries match whole ids. The standard analyzer would split UUIDs at
// the hyphens and the removal and owner filters would match nothing.
func indexMapping() mapping.IndexMapping {
	ids := bleve.NewTextFieldMapping()
	ids.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("owner_id", ids)
	doc.AddFieldMappingsAt("project_id", ids)
	doc.AddFieldMappingsAt("timestamp", ids)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Open opens or creates the index at path. An empty path builds an
// in-memory index.
func Open(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		idx, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("create search index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, indexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

func docID(ownerID, projectID string, row int) string {
	return fmt.Sprintf("%s/%s/%d", ownerID, projectID, row)
}

// IndexProject replaces the indexed rows for a project with its current
// transcript. Called after a successful save.
func (i *Index) IndexProject(p *project.Project) error {
	if err := i.RemoveProject(p.OwnerID, p.ID); err != nil {
		return err
	}

	batch := i.idx.NewBatch()
	for n, row := range p.Transcript {
		doc := rowDocument{
			OwnerID:   strings.ToLower(p.OwnerID),
			ProjectID: p.ID,
			Timestamp: row.Timestamp,
			Speaker:   row.Speaker,
			Text:      row.Text,
		}
		if err := batch.Index(docID(p.OwnerID, p.ID, n), doc); err != nil {
			return fmt.Errorf("index transcript row: %w", err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("index transcript: %w", err)
	}
	log.Debug().Str("project", p.ID).Int("rows", len(p.Transcript)).Msg("transcript indexed")
	return nil
}

// RemoveProject drops all indexed rows for a project.
func (i *Index) RemoveProject(ownerID, projectID string) error {
	q := bleve.NewTermQuery(projectID)
	q.SetField("project_id")
	req := bleve.NewSearchRequest(q)
	req.Size = 10000

	res, err := i.idx.Search(req)
	if err != nil {
		return fmt.Errorf("find indexed rows: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil
	}

	batch := i.idx.NewBatch()
	prefix := ownerID + "/" + projectID + "/"
	for _, hit := range res.Hits {
		if strings.HasPrefix(hit.ID, prefix) {
			batch.Delete(hit.ID)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("remove indexed rows: %w", err)
	}
	return nil
}

// Search returns the owner's transcript rows matching query, best first.
func (i *Index) Search(_ context.Context, ownerID, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	ownerQ := bleve.NewTermQuery(strings.ToLower(ownerID))
	ownerQ.SetField("owner_id")
	textQ := bleve.NewMatchQuery(query)
	textQ.SetField("text")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(ownerQ, textQ))
	req.Size = limit
	req.Fields = []string{"project_id", "timestamp", "speaker", "text"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["project_id"].(string); ok {
			hit.ProjectID = v
		}
		if v, ok := h.Fields["timestamp"].(string); ok {
			hit.Timestamp = v
		}
		if v, ok := h.Fields["speaker"].(string); ok {
			hit.Speaker = v
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
