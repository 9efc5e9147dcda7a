package dto

import (
	"time"

	domaintyping "talentsync/internal/domain/typing"
)

type TypingIndicator struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func MapTypingIndicator(ind domaintyping.Indicator) TypingIndicator {
	return TypingIndicator{
		ConversationID: string(ind.ConversationID),
		UserID:         string(ind.UserID),
		ExpiresAt:      ind.ExpiresAt,
	}
}
