package knowledgebase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// PGVectorStore stores and searches article embeddings in a Postgres
// table with the pgvector extension, supplying nearest-neighbor context
// for draft generation (spec §9.4 supplemental KB search).
type PGVectorStore struct {
	db *sql.DB
}

func NewPGVectorStore(db *sql.DB) *PGVectorStore {
	return &PGVectorStore{db: db}
}

func (p *PGVectorStore) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]VectorResult, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := p.db.QueryContext(ctx,
		`SELECT article_id, 1 - (embedding <=> $1) AS score
		 FROM kb_article_embeddings
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []VectorResult
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ArticleID, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (p *PGVectorStore) StoreEmbedding(ctx context.Context, articleID string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO kb_article_embeddings (article_id, embedding) VALUES ($1, $2)
		 ON CONFLICT (article_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		articleID, vec)
	return err
}
