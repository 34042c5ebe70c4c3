package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100

	leaderboardCacheSize = 1024 * 1024 // minimum freecache size
)

type topUsersSource interface {
	TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// Leaderboard serves ranked users, caching each page size for a short TTL.
// The ledger invalidates it whenever a streak changes.
type Leaderboard struct {
	source   topUsersSource
	cache    *freecache.Cache
	cacheTTL time.Duration

	// generation is bumped on every Invalidate; a page read under an older
	// generation is never cached.
	mu         sync.Mutex
	generation uint64
}

func NewLeaderboard(source topUsersSource, cacheTTL time.Duration) *Leaderboard {
	return &Leaderboard{
		source:   source,
		cache:    freecache.NewCache(leaderboardCacheSize),
		cacheTTL: cacheTTL,
	}
}

func (lb *Leaderboard) TopUsers(ctx context.Context, limit int) (_ []LeaderboardEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.streak.top-users")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)
	span.SetAttributes(attribute.Int("limit", limit))

	cacheKey := []byte(fmt.Sprintf("top::%d", limit))
	if lb.cacheTTL > 0 {
		if cached, err := lb.cache.Get(cacheKey); err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal(cached, &entries); err == nil {
				span.SetAttributes(attribute.Bool("cached", true))
				return entries, nil
			} else {
				log.Errorf("failed to unmarshal cached leaderboard: %s", err)
			}
		}
	}

	lb.mu.Lock()
	generation := lb.generation
	lb.mu.Unlock()

	entries, err := lb.source.TopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}

	if lb.cacheTTL > 0 {
		lb.store(cacheKey, entries, generation)
	}

	return entries, nil
}

func (lb *Leaderboard) store(cacheKey []byte, entries []LeaderboardEntry, generation uint64) {
	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("failed to marshal leaderboard for cache: %s", err)
		return
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.generation != generation {
		log.Debugln("leaderboard changed while reading, not caching")
		return
	}
	if err := lb.cache.Set(cacheKey, entriesJson, max(1, int(lb.cacheTTL.Seconds()))); err != nil {
		log.Errorf("failed to cache leaderboard: %s", err)
	}
}

func (lb *Leaderboard) Invalidate() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.generation++
	lb.cache.Clear()
}
