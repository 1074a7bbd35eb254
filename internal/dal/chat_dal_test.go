package dal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"DocuMind/internal/models"
)

func newTestChatDAL(t *testing.T) *ChatDAL {
	t.Helper()
	return NewChatDAL(newTestDB(t), nil, 0, testLogger())
}

func TestGetOrCreateSession_Idempotent(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	first, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "What is RAG?")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "What is RAG?", first.Title)

	second, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "a different title")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "What is RAG?", second.Title)
}

func TestGetOrCreateSession_TokensAreOwnerScoped(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	one, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "t")
	require.NoError(t, err)
	two, err := dal.GetOrCreateSession(ctx, "token-1", "owner2", "t")
	require.NoError(t, err)
	require.NotEqual(t, one.ID, two.ID)
}

func TestAppendTurn_WritesUserAndAssistantRows(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	session, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "t")
	require.NoError(t, err)

	sources := datatypes.JSON(`[{"document_id":"d1","score":0.9}]`)
	require.NoError(t, dal.AppendTurn(ctx, session.ID, "what is it?", "it is this", sources, 42, 1500*time.Millisecond))

	messages, err := dal.GetHistory(ctx, "token-1", "owner1")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	user, assistant := messages[0], messages[1]
	require.Equal(t, models.RoleUser, user.Role)
	require.Equal(t, "what is it?", user.Content)
	require.Zero(t, user.TokensUsed)
	require.Zero(t, user.ProcessingTimeMs)

	require.Equal(t, models.RoleAssistant, assistant.Role)
	require.Equal(t, "it is this", assistant.Content)
	require.Equal(t, 42, assistant.TokensUsed)
	require.Equal(t, int64(1500), assistant.ProcessingTimeMs)
	require.JSONEq(t, string(sources), string(assistant.Sources))
}

func TestGetHistory_ChronologicalOrder(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	session, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "t")
	require.NoError(t, err)

	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, dal.AppendTurn(ctx, session.ID, q, "answer", nil, i, 0))
	}

	messages, err := dal.GetHistory(ctx, "token-1", "owner1")
	require.NoError(t, err)
	require.Len(t, messages, 6)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "second", messages[2].Content)
	require.Equal(t, "third", messages[4].Content)
	for i, m := range messages {
		if i%2 == 0 {
			require.Equal(t, models.RoleUser, m.Role)
		} else {
			require.Equal(t, models.RoleAssistant, m.Role)
		}
	}
}

func TestGetHistory_OrderSurvivesTimestampCollisions(t *testing.T) {
	db := newTestDB(t)
	dal := NewChatDAL(db, nil, 0, testLogger())
	ctx := context.Background()

	session, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "t")
	require.NoError(t, err)

	for _, q := range []string{"first", "second", "third"} {
		require.NoError(t, dal.AppendTurn(ctx, session.ID, q, "answer to "+q, nil, 0, 0))
	}

	// MySQL stores created_at at millisecond precision, so both rows of a
	// turn routinely share a timestamp. Collapse them all to one instant and
	// check the order still holds.
	collided := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("session_id = ?", session.ID).
		Update("created_at", collided).Error)

	messages, err := dal.GetHistory(ctx, "token-1", "owner1")
	require.NoError(t, err)
	require.Len(t, messages, 6)
	for i, want := range []string{"first", "answer to first", "second", "answer to second", "third", "answer to third"} {
		require.Equal(t, want, messages[i].Content)
		require.Equal(t, i, messages[i].Ordinal)
	}
}

func TestGetHistory_UnknownSession(t *testing.T) {
	dal := newTestChatDAL(t)

	_, err := dal.GetHistory(context.Background(), "no-such-token", "owner1")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetHistory_CrossTenantReadsAsNotFound(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	_, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "t")
	require.NoError(t, err)

	_, err = dal.GetHistory(ctx, "token-1", "owner2")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListSessions(t *testing.T) {
	dal := newTestChatDAL(t)
	ctx := context.Background()

	_, err := dal.GetOrCreateSession(ctx, "token-1", "owner1", "a")
	require.NoError(t, err)
	_, err = dal.GetOrCreateSession(ctx, "token-2", "owner1", "b")
	require.NoError(t, err)
	_, err = dal.GetOrCreateSession(ctx, "token-3", "owner2", "c")
	require.NoError(t, err)

	sessions, err := dal.ListSessions(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}
