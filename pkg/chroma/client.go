package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	"ga03-kanban/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

// maxDocumentLength keeps documents under the embedding model's token limit
const maxDocumentLength = 10000

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}
	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	name := cfg.ChromaCollection
	if name == "" {
		name = "email"
	}
	collection, err := client.GetOrCreateCollection(
		context.Background(),
		name,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	log.Printf("[Chroma] Initialized client with collection: %s", name)

	return &ChromaClient{client: client, collection: collection}, nil
}

func document(subject, body string) string {
	text := fmt.Sprintf("Subject: %s\n\nBody: %s", subject, body)
	if len(text) > maxDocumentLength {
		text = text[:maxDocumentLength]
	}
	return text
}

// Upsert stores the embedding of one email, replacing any previous one
func (c *ChromaClient) Upsert(ctx context.Context, userID, emailID, subject, body string) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":  userID,
		"email_id": emailID,
		"subject":  subject,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(emailID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(document(subject, body)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email embedding: %w", err)
	}
	return nil
}

// Query returns the ids of the user's emails nearest to query with their distances
func (c *ChromaClient) Query(ctx context.Context, userID, query string, limit int) ([]string, []float64, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}
	emailIDs := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		emailIDs = append(emailIDs, string(id))
	}

	distances := make([]float64, 0, len(emailIDs))
	if groups := results.GetDistancesGroups(); len(groups) > 0 {
		for _, d := range groups[0] {
			distances = append(distances, float64(d))
		}
	}
	log.Printf("[Chroma] Query for %s returned %d results", userID, len(emailIDs))
	return emailIDs, distances, nil
}

// Delete drops the embedding of one email
func (c *ChromaClient) Delete(ctx context.Context, emailID string) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(emailID))); err != nil {
		return fmt.Errorf("failed to delete email embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored embeddings
func (c *ChromaClient) Count(ctx context.Context) (int, error) {
	n, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
