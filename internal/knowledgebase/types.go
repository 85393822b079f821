package knowledgebase

import (
	"time"
)

type Article struct {
	ID         string                 `json:"id"`
	TenantID   string                 `json:"-"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Category   string                 `json:"category"`
	Tags       []string               `json:"tags"`
	Helpful    int64                  `json:"helpful"`
	NotHelpful int64                  `json:"not_helpful"`
	Published  bool                   `json:"published"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Embedding  []float32              `json:"-"`
}

type SearchResult struct {
	Article   *Article `json:"article"`
	Score     float64  `json:"score"`
	Relevance string   `json:"relevance"`
	Snippets  []string `json:"snippets"`
}

type KBConfig struct {
	OpenAIAPIKey        string
	EmbeddingModel      string
	SimilarityThreshold float64
	MaxResults          int
}
