// Package simdemand gives the "demand" repositioning strategy a persistent,
// cross-run memory of pickup counts per node, the same way the teacher's
// redis package gives driver location a persistent, cross-request memory.
package simdemand

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const demandKeyPrefix = "ridesim:demand:"

// DemandSample is one (node, count) pair read back from the cache (§3.1).
type DemandSample struct {
	Node  int
	Count int64
}

// Cache accumulates per-node pickup counters in Redis and reads them back
// as the historical_demand input to the demand repositioning strategy.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a Cache over an existing Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// RecordPickup increments the pickup counter for a node by 1. The
// simulator's tick loop does not call it; counters change only when a caller
// invokes it directly.
func (c *Cache) RecordPickup(ctx context.Context, node int) error {
	err := c.client.Incr(ctx, demandKey(node)).Err()
	if err != nil {
		log.Warn().Int("node", node).Str("component", "simdemand").
			Err(err).Msg("failed to record pickup demand")
	}
	return err
}

// HistoricalDemand returns the accumulated demand map across all nodes seen
// so far, keyed by node id, suitable as RepositionConfig.HistoricalDemand.
func (c *Cache) HistoricalDemand(ctx context.Context) (map[int]int64, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	demand := make(map[int]int64, len(keys))
	for i, key := range keys {
		node, err := strconv.Atoi(key[len(demandKeyPrefix):])
		if err != nil {
			continue
		}
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		demand[node] = count
	}
	return demand, nil
}

func (c *Cache) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, demandKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func demandKey(node int) string {
	return fmt.Sprintf("%s%d", demandKeyPrefix, node)
}
