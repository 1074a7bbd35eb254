package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"DocuMind/internal/dal"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/splitters"
	"DocuMind/internal/rag/tokenizer"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/pkg/logger"
)

const testDimension = 8

// charEncoding tokenizes one byte per token, deterministic and offline.
type charEncoding struct{}

func (charEncoding) Encode(text string) []int { return make([]int, len(text)) }
func (charEncoding) Decode(tokens []int) string {
	return string(make([]byte, len(tokens)))
}

// fakeEmbedder returns fixed-dimension vectors and records every input.
type fakeEmbedder struct {
	batches [][]string
	singles []string
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.singles = append(f.singles, text)
	return make([]float32, testDimension), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, testDimension)
	}
	return out, nil
}

func (f *fakeEmbedder) embeddedTexts() []string {
	var all []string
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

// fakeLLM returns a canned answer and records whether it was called.
type fakeLLM struct {
	answer string
	calls  int
	err    error
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// fakeStore is an in-memory vectorstore.Store with per-namespace data and
// optional upsert failure injection.
type fakeStore struct {
	data        map[schema.Namespace]map[string]schema.Vector
	queryResult []schema.Match
	failVectors int // fail this many vectors of the next upsert
	upsertErr   error
	deleted     map[schema.Namespace][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data:    make(map[schema.Namespace]map[string]schema.Vector),
		deleted: make(map[schema.Namespace][]string),
	}
}

func (f *fakeStore) Upsert(ctx context.Context, vectors []schema.Vector, ns schema.Namespace, batchSize int) (*vectorstore.UpsertResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.data[ns] == nil {
		f.data[ns] = make(map[string]schema.Vector)
	}
	result := &vectorstore.UpsertResult{BatchesSent: 1}
	for i, v := range vectors {
		if i < f.failVectors {
			result.FailedVectors++
			continue
		}
		f.data[ns][v.ID] = v
		result.Upserted++
	}
	if result.FailedVectors > 0 {
		result.FailedBatches = 1
		result.BatchesSent++
	}
	f.failVectors = 0
	return result, nil
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, topK int, ns schema.Namespace, filter map[string]interface{}) ([]schema.Match, error) {
	return f.queryResult, nil
}

func (f *fakeStore) DeleteByIDs(ctx context.Context, ids []string, ns schema.Namespace) error {
	f.deleted[ns] = append(f.deleted[ns], ids...)
	for _, id := range ids {
		delete(f.data[ns], id)
	}
	return nil
}

func (f *fakeStore) ListIDs(ctx context.Context, ns schema.Namespace) ([]string, error) {
	var ids []string
	for id := range f.data[ns] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) DropNamespace(ctx context.Context, ns schema.Namespace) error {
	delete(f.data, ns)
	return nil
}

func (f *fakeStore) Stats(ctx context.Context, ns schema.Namespace) (*vectorstore.Stats, error) {
	if ns != "" {
		return &vectorstore.Stats{VectorCount: int64(len(f.data[ns]))}, nil
	}
	total := 0
	for _, m := range f.data {
		total += len(m)
	}
	return &vectorstore.Stats{VectorCount: int64(total)}, nil
}

var _ vectorstore.Store = (*fakeStore)(nil)

var errEmbedderDown = errors.New("embedding provider unavailable")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Document{},
		&models.Chunk{},
		&models.ChatSession{},
		&models.ChatMessage{},
	))
	return db
}

func newTestSplitter(t *testing.T, chunkSize, overlap int) *splitters.SentenceSplitter {
	t.Helper()
	s, err := splitters.NewSentenceSplitter(chunkSize, overlap, tokenizer.NewWithEncoding(charEncoding{}))
	require.NoError(t, err)
	return s
}

func testLogger() *logger.Logger {
	return logger.New("test")
}

func newTestIngestion(t *testing.T, db *gorm.DB, embedder *fakeEmbedder, store *fakeStore) (*IngestionPipeline, *dal.DocumentDAL) {
	t.Helper()
	docs := dal.NewDocumentDAL(db)
	return NewIngestionPipeline(newTestSplitter(t, 200, 40), embedder, store, docs, 100, testLogger()), docs
}
