package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"channelchat-backend/internal/keyValue"

	"go.uber.org/zap"
)

// Authority answers whether a user may act within a channel. A membership row
// is the sole authorization artifact; channel ownership does not bypass it
// (owners get their row inserted when the channel is created).
type Authority struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

// Positive answers are cached briefly; negative answers always hit the
// database so a fresh join is visible immediately.
const cacheTTL = 5 * time.Minute

func New(db *sql.DB, sugar *zap.SugaredLogger) *Authority {
	return &Authority{db: db, sugar: sugar}
}

func (a *Authority) IsMember(ctx context.Context, userID int64, channelID int64) (bool, error) {
	key := cacheKey(userID, channelID)

	value, err := keyValue.Get(key)
	if err != nil {
		return false, err
	}
	if value == "y" {
		return true, nil
	}

	var isMember bool
	err = a.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM memberships WHERE user_id = ? AND channel_id = ?)",
		userID, channelID).Scan(&isMember)
	if err != nil {
		return false, err
	}

	if isMember {
		if err := keyValue.Set(key, "y", cacheTTL); err != nil {
			a.sugar.Error(err)
		}
	}

	return isMember, nil
}

// Invalidate drops the cached membership answer; callers must invoke it when
// a membership row is deleted.
func (a *Authority) Invalidate(userID int64, channelID int64) {
	if err := keyValue.Delete(cacheKey(userID, channelID)); err != nil {
		a.sugar.Error(err)
	}
}

func cacheKey(userID int64, channelID int64) string {
	return fmt.Sprintf("member:%d:%d", userID, channelID)
}
