// Package ledger remembers which scans have already been split so that a
// re-run over the same directory only processes new images.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/PhantomInTheWire/scansplit/pkg/layout"
)

// Ledger records completed images. Entries are addressed by the run key
// returned by Key.
type Ledger interface {
	Completed(ctx context.Context, key string) (bool, error)
	MarkCompleted(ctx context.Context, key string, tiles int) error
}

// Key identifies one image split with one grid into one destination, as
// <id>:<w>x<h>[:exact]:<destination hash>. Changing the subject size, the
// exact-fit rule or the output makes the image pending again.
func Key(imageID string, spec layout.GridSpec, destination string) string {
	grid := fmt.Sprintf("%dx%d", spec.SubjectWidth, spec.SubjectHeight)
	if spec.ExactFit {
		grid += ":exact"
	}
	return fmt.Sprintf("%s:%s:%016x", imageID, grid, xxhash.Sum64String(destination))
}

// DefaultPrefix namespaces the ledger keys.
const DefaultPrefix = "scansplit"

// Redis is a Ledger kept in a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and checks the server answers.
func NewRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) statusKey(key string) string {
	return fmt.Sprintf("%s:image:%s:status", r.prefix, key)
}

func (r *Redis) tilesKey(key string) string {
	return fmt.Sprintf("%s:image:%s:tiles", r.prefix, key)
}

func (r *Redis) Completed(ctx context.Context, key string) (bool, error) {
	status, err := r.client.Get(ctx, r.statusKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == "completed", nil
}

func (r *Redis) MarkCompleted(ctx context.Context, key string, tiles int) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.tilesKey(key), strconv.Itoa(tiles), 0)
		p.Set(ctx, r.statusKey(key), "completed", 0)
		return nil
	})
	return err
}

// Tiles returns the tile count recorded under key.
func (r *Redis) Tiles(ctx context.Context, key string) (int, error) {
	return r.client.Get(ctx, r.tilesKey(key)).Int()
}

// Forget clears key so the next run splits the image again.
func (r *Redis) Forget(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.statusKey(key), r.tilesKey(key)).Err()
}
