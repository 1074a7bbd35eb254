package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DocuMind/internal/models"
	"DocuMind/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatDAL persists chat sessions and their turns, with an optional Redis
// read-through cache on history lookups.
type ChatDAL struct {
	db       *gorm.DB
	cache    *redis.Client // nil disables caching
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewChatDAL creates a new ChatDAL. cache may be nil.
func NewChatDAL(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration, log *logger.Logger) *ChatDAL {
	return &ChatDAL{db: db, cache: cache, cacheTTL: cacheTTL, log: log}
}

// GetOrCreateSession looks a session up by its externally supplied token,
// scoped to the owner, and inserts it when absent. The operation is
// idempotent: calling it twice with the same token yields the same session.
func (dal *ChatDAL) GetOrCreateSession(ctx context.Context, sessionToken, ownerID, title string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := dal.db.WithContext(ctx).
		Where("session_token = ? AND owner_id = ?", sessionToken, ownerID).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	session = models.ChatSession{
		ID:           uuid.New().String(),
		SessionToken: sessionToken,
		OwnerID:      ownerID,
		Title:        title,
	}
	if err := dal.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// AppendTurn writes exactly two message rows for one answered query: the user
// turn (no token or latency tracking) and the assistant turn carrying the
// real values and a snapshot of the retrieved sources.
func (dal *ChatDAL) AppendTurn(ctx context.Context, sessionID, question, answer string, sources datatypes.JSON, tokensUsed int, processingTime time.Duration) error {
	userMsg := models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   question,
	}
	assistantMsg := models.ChatMessage{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		Role:             models.RoleAssistant,
		Content:          answer,
		Sources:          sources,
		TokensUsed:       tokensUsed,
		ProcessingTimeMs: processingTime.Milliseconds(),
	}

	err := dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		err := tx.Model(&models.ChatMessage{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(ordinal), -1) + 1").
			Scan(&next).Error
		if err != nil {
			return err
		}
		userMsg.Ordinal = next
		assistantMsg.Ordinal = next + 1

		if err := tx.Create(&userMsg).Error; err != nil {
			return err
		}
		return tx.Create(&assistantMsg).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}

	dal.invalidateHistory(ctx, sessionID)
	return nil
}

// GetHistory returns all messages of a session in creation order, or a typed
// not-found error when the session does not exist for this owner.
func (dal *ChatDAL) GetHistory(ctx context.Context, sessionToken, ownerID string) ([]models.ChatMessage, error) {
	var session models.ChatSession
	err := dal.db.WithContext(ctx).
		Where("session_token = ? AND owner_id = ?", sessionToken, ownerID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "session"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if cached, ok := dal.cachedHistory(ctx, session.ID); ok {
		return cached, nil
	}

	var messages []models.ChatMessage
	err = dal.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("ordinal ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	dal.storeHistory(ctx, session.ID, messages)
	return messages, nil
}

// ListSessions returns a tenant's sessions, newest first.
func (dal *ChatDAL) ListSessions(ctx context.Context, ownerID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := dal.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func historyCacheKey(sessionID string) string {
	return "chat:history:" + sessionID
}

func (dal *ChatDAL) cachedHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, bool) {
	if dal.cache == nil {
		return nil, false
	}
	raw, err := dal.cache.Get(ctx, historyCacheKey(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

func (dal *ChatDAL) storeHistory(ctx context.Context, sessionID string, messages []models.ChatMessage) {
	if dal.cache == nil {
		return
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err := dal.cache.Set(ctx, historyCacheKey(sessionID), raw, dal.cacheTTL).Err(); err != nil {
		dal.log.WithError(err).Warn("Failed to cache chat history")
	}
}

func (dal *ChatDAL) invalidateHistory(ctx context.Context, sessionID string) {
	if dal.cache == nil {
		return
	}
	if err := dal.cache.Del(ctx, historyCacheKey(sessionID)).Err(); err != nil {
		dal.log.WithError(err).Warn("Failed to invalidate chat history cache")
	}
}
