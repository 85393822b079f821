package knowledgebase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Service provides article search used as grounding context for draft
// generation (C9 step 9 / C11 GetDraft), not as a public endpoint in its
// own right. Results are not filtered by tenant or by plan.
type Service struct {
	vectorStore  VectorStore
	openaiClient *openai.Client
	articleStore ArticleStore
	config       KBConfig
}

func NewService(vectorStore VectorStore, articleStore ArticleStore, config KBConfig) *Service {
	return &Service{
		vectorStore:  vectorStore,
		articleStore: articleStore,
		openaiClient: openai.NewClient(config.OpenAIAPIKey),
		config:       config,
	}
}

// Search performs semantic search over articles, narrowed by the optional
// "category" and "published" filters.
func (s *Service) Search(ctx context.Context, query string, filters map[string]interface{}) ([]SearchResult, error) {
	embedding, err := s.generateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	vectorResults, err := s.vectorStore.Search(ctx, embedding, s.config.MaxResults, s.config.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	results := make([]SearchResult, 0, len(vectorResults))
	for _, vr := range vectorResults {
		article, err := s.articleStore.GetArticle(ctx, vr.ArticleID)
		if err != nil {
			continue
		}
		if !matchesFilters(article, filters) {
			continue
		}
		snippets := extractSnippets(article.Content, query)
		results = append(results, SearchResult{
			Article:   article,
			Score:     vr.Score,
			Relevance: relevanceFor(vr.Score),
			Snippets:  snippets,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// ContextFor returns up to 3 article snippets for a draft-generation
// prompt grounding a given query.
func (s *Service) ContextFor(ctx context.Context, query string) []string {
	results, err := s.Search(ctx, query, map[string]interface{}{"published": true})
	if err != nil {
		return nil
	}
	var out []string
	for i, r := range results {
		if i >= 3 {
			break
		}
		out = append(out, fmt.Sprintf("%s: %s", r.Article.Title, r.Article.Content))
	}
	return out
}

func (s *Service) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data[0].Embedding, nil
}

func matchesFilters(article *Article, filters map[string]interface{}) bool {
	for k, v := range filters {
		switch k {
		case "category":
			if article.Category != v.(string) {
				return false
			}
		case "published":
			if article.Published != v.(bool) {
				return false
			}
		}
	}
	return true
}

func extractSnippets(content, query string) []string {
	var snippets []string
	words := strings.Fields(query)
	for _, line := range strings.Split(content, "\n") {
		for _, w := range words {
			if strings.Contains(strings.ToLower(line), strings.ToLower(w)) {
				snippets = append(snippets, strings.TrimSpace(line))
				break
			}
		}
		if len(snippets) >= 3 {
			break
		}
	}
	return snippets
}

func relevanceFor(score float64) string {
	switch {
	case score > 0.9:
		return "exact"
	case score > 0.7:
		return "high"
	case score > 0.5:
		return "medium"
	default:
		return "low"
	}
}
