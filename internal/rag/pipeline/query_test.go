package pipeline

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"DocuMind/internal/dal"
	"DocuMind/internal/models"
	"DocuMind/internal/rag/schema"
	"DocuMind/internal/rag/tokenizer"
)

func newTestQuery(t *testing.T, store *fakeStore, model *fakeLLM) (*QueryPipeline, *dal.ChatDAL) {
	t.Helper()
	chat := dal.NewChatDAL(newTestDB(t), nil, 0, testLogger())
	codec := tokenizer.NewWithEncoding(charEncoding{})
	return NewQueryPipeline(&fakeEmbedder{}, store, model, codec, chat, testLogger()), chat
}

func matchesFixture() []schema.Match {
	return []schema.Match{
		{
			ID:      "doc_d1_chunk_0",
			Score:   0.92,
			Content: "RAG retrieves before it generates.",
			Metadata: map[string]interface{}{
				"document_id": "d1",
				"title":       "Intro",
				"chunk_index": float64(0),
			},
		},
		{
			ID:      "doc_d1_chunk_4",
			Score:   0.81,
			Content: "Context is assembled from retrieved chunks.",
			Metadata: map[string]interface{}{
				"document_id": "d1",
				"title":       "Intro",
				"chunk_index": float64(4),
			},
		},
	}
}

func TestQuery_AnswersFromMatches(t *testing.T) {
	store := newFakeStore()
	store.queryResult = matchesFixture()
	model := &fakeLLM{answer: "It retrieves, then generates."}
	pipeline, _ := newTestQuery(t, store, model)

	result, err := pipeline.Query(context.Background(), "owner1", "what does RAG do?", 5, "")
	require.NoError(t, err)
	require.Equal(t, "It retrieves, then generates.", result.Answer)
	require.Equal(t, 1, model.calls)
	require.NotEmpty(t, result.SessionID)
	require.Greater(t, result.TokensUsed, 0)

	require.Len(t, result.Sources, 2)
	require.Equal(t, "d1", result.Sources[0].DocumentID)
	require.Equal(t, "Intro", result.Sources[0].Title)
	require.Equal(t, 0, result.Sources[0].ChunkIndex)
	require.Equal(t, 4, result.Sources[1].ChunkIndex)
	require.Equal(t, float32(0.92), result.Sources[0].Score)
}

func TestQuery_NoMatchesSkipsCompletion(t *testing.T) {
	store := newFakeStore() // empty queryResult
	model := &fakeLLM{answer: "should never be used"}
	pipeline, _ := newTestQuery(t, store, model)

	result, err := pipeline.Query(context.Background(), "owner1", "anything at all?", 5, "")
	require.NoError(t, err)
	require.Equal(t, NoRelevantInformation, result.Answer)
	require.Zero(t, model.calls)
	require.NotNil(t, result.Sources)
	require.Empty(t, result.Sources)
	require.Zero(t, result.TokensUsed)
	require.NotEmpty(t, result.SessionID)
}

func TestQuery_EmptyQuestionRejected(t *testing.T) {
	pipeline, _ := newTestQuery(t, newFakeStore(), &fakeLLM{})

	_, err := pipeline.Query(context.Background(), "owner1", "  \t ", 5, "")
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestQuery_SuppliedSessionPersistsTurn(t *testing.T) {
	store := newFakeStore()
	store.queryResult = matchesFixture()
	pipeline, chat := newTestQuery(t, store, &fakeLLM{answer: "grounded answer"})
	ctx := context.Background()

	result, err := pipeline.Query(ctx, "owner1", "first question?", 5, "session-token-1")
	require.NoError(t, err)
	require.Equal(t, "session-token-1", result.SessionID)

	messages, err := chat.GetHistory(ctx, "session-token-1", "owner1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, models.RoleUser, messages[0].Role)
	require.Equal(t, "first question?", messages[0].Content)
	require.Equal(t, models.RoleAssistant, messages[1].Role)
	require.Equal(t, "grounded answer", messages[1].Content)
	require.NotEmpty(t, messages[1].Sources)

	// A second turn lands in the same session.
	_, err = pipeline.Query(ctx, "owner1", "second question?", 5, "session-token-1")
	require.NoError(t, err)
	messages, err = chat.GetHistory(ctx, "session-token-1", "owner1")
	require.NoError(t, err)
	require.Len(t, messages, 4)
}

func TestQuery_SessionTitleTruncatesOnRunes(t *testing.T) {
	store := newFakeStore()
	store.queryResult = matchesFixture()
	pipeline, chat := newTestQuery(t, store, &fakeLLM{answer: "grounded answer"})
	ctx := context.Background()

	// Longer than 80 runes and entirely multi-byte, so a byte-level cut
	// would split a rune.
	question := strings.Repeat("日本語の質問", 20)
	_, err := pipeline.Query(ctx, "owner1", question, 5, "session-token-1")
	require.NoError(t, err)

	sessions, err := chat.ListSessions(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.True(t, utf8.ValidString(sessions[0].Title))
	require.Equal(t, 80, len([]rune(sessions[0].Title)))
	require.Equal(t, string([]rune(question)[:80]), sessions[0].Title)
}

func TestQuery_AnonymousSessionNotPersisted(t *testing.T) {
	store := newFakeStore()
	store.queryResult = matchesFixture()
	pipeline, chat := newTestQuery(t, store, &fakeLLM{answer: "a"})
	ctx := context.Background()

	result, err := pipeline.Query(ctx, "owner1", "is this stored?", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, result.SessionID)

	_, err = chat.GetHistory(ctx, result.SessionID, "owner1")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestQuery_CompletionFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.queryResult = matchesFixture()
	model := &fakeLLM{err: errEmbedderDown}
	pipeline, _ := newTestQuery(t, store, model)

	_, err := pipeline.Query(context.Background(), "owner1", "still there?", 5, "")
	require.Error(t, err)
}

func TestBuildContext_PreservesOrder(t *testing.T) {
	ctxText := buildContext(matchesFixture())
	require.Equal(t, "RAG retrieves before it generates.\n\nContext is assembled from retrieved chunks.", ctxText)
}
