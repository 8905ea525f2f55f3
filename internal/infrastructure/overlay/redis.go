package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/output"
)

var _ output.CheckinOverlay = (*Redis)(nil)

// Redis keeps the check-in map in one hash per event: checkin:<event> → id → JSON state.
type Redis struct {
	conn *redis.Client
	key  string
}

type state struct {
	Status      domain.Status `json:"status"`
	CheckedInAt *time.Time    `json:"checkedInAt"`
}

// NewRedis connects to redisURL (redis://…) and pings it.
func NewRedis(ctx context.Context, redisURL, eventKey string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("overlay: REDIS_URL est requis: %w", domain.ErrSourceMisconfigured)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("overlay: REDIS_URL invalide: %v: %w", err, domain.ErrSourceMisconfigured)
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("overlay: redis ping: %v: %w", err, domain.ErrSourceUnavailable)
	}
	log.Println("✅ Redis connecté (overlay des check-ins).")
	return NewRedisWithClient(conn, eventKey), nil
}

func NewRedisWithClient(conn *redis.Client, eventKey string) *Redis {
	if eventKey == "" {
		eventKey = "default"
	}
	return &Redis{conn: conn, key: "checkin:" + eventKey}
}

func (r *Redis) Fetch(ctx context.Context) (map[string]entities.StatusUpdate, error) {
	raw, err := r.conn.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %v: %w", r.key, err, domain.ErrSourceUnavailable)
	}
	out := make(map[string]entities.StatusUpdate, len(raw))
	for id, v := range raw {
		var st state
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			log.Printf("⚠️ État de check-in illisible pour %s: %v", id, err)
			continue
		}
		out[id] = entities.StatusUpdate{Status: st.Status, CheckedInAt: st.CheckedInAt}
	}
	return out, nil
}

func (r *Redis) Put(ctx context.Context, id string, u entities.StatusUpdate) error {
	payload, err := json.Marshal(state{Status: u.Status, CheckedInAt: u.CheckedInAt})
	if err != nil {
		return fmt.Errorf("encode state: %v: %w", err, domain.ErrUpdateRejected)
	}
	if err := r.conn.HSet(ctx, r.key, id, payload).Err(); err != nil {
		return fmt.Errorf("redis HSET %s %s: %v: %w", r.key, id, err, domain.ErrUpdateRejected)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.conn.Close()
}
