package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 60 * time.Second

// Presence tracks which users currently hold a live websocket session.
// Keys carry a TTL so a crashed server's sessions expire on their own.
type Presence struct {
	rdb *redis.Client
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

func presenceKey(userID int) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (p *Presence) Online(ctx context.Context, userID int) error {
	pipe := p.rdb.TxPipeline()
	pipe.Incr(ctx, presenceKey(userID))
	pipe.Expire(ctx, presenceKey(userID), presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Heartbeat refreshes the TTL while the session is alive.
func (p *Presence) Heartbeat(ctx context.Context, userID int) error {
	return p.rdb.Expire(ctx, presenceKey(userID), presenceTTL).Err()
}

func (p *Presence) Offline(ctx context.Context, userID int) error {
	n, err := p.rdb.Decr(ctx, presenceKey(userID)).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.rdb.Del(ctx, presenceKey(userID)).Err()
	}
	return nil
}

func (p *Presence) IsOnline(ctx context.Context, userID int) (bool, error) {
	n, err := p.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
