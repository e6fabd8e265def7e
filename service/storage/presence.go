package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence mirrors which users are online into redis so that the rest
// of the platform can read it without talking to the gateway. It is a
// write-through mirror only: the in-memory registry stays the source
// of truth for fan-out, and losing redis never affects delivery.

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Presence struct {
	rdb    *redis.Client
	nodeID string
	ttl    time.Duration
}

// NewPresence connects to redis and verifies the connection.
func NewPresence(c Config, nodeID string, ttl time.Duration) (*Presence, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return &Presence{rdb: rdb, nodeID: nodeID, ttl: ttl}, nil
}

// presence key: im:presence:<user>
// value: node id; TTL bounds the online validity period
func presenceKey(user string) string { return "im:presence:" + user }

// Online marks the user online and starts the TTL.
func (p *Presence) Online(ctx context.Context, user string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Set(ctx, presenceKey(user), p.nodeID, p.ttl).Err()
}

// Renew extends the TTL; called from the keepalive tick.
func (p *Presence) Renew(ctx context.Context, user string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Expire(ctx, presenceKey(user), p.ttl).Err()
}

// Offline removes the key. Callers only invoke this when the user's
// last connection has left the registry.
func (p *Presence) Offline(ctx context.Context, user string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the user is online and on which node.
func (p *Presence) Lookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	if p == nil {
		return "", false, nil
	}
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Close releases the redis client.
func (p *Presence) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
