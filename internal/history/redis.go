// Package history keeps the storefront's recently executed search terms in
// Redis. The suggestion engine reads them as its history source.
package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowcart/storefront-search/internal/domain"
)

const (
	termsKey  = "search:history:terms"
	countsKey = "search:history:counts"

	// DefaultMaxTerms bounds how many distinct terms are remembered.
	DefaultMaxTerms = 500
)

// Store records search terms in a sorted set ordered by last use, with the
// latest result count of each term in a hash.
type Store struct {
	client   *redis.Client
	maxTerms int
	now      func() time.Time
}

// NewStore creates a Redis-backed history store. A non-positive maxTerms
// uses DefaultMaxTerms.
func NewStore(client *redis.Client, maxTerms int) *Store {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	return &Store{client: client, maxTerms: maxTerms, now: time.Now}
}

// Record stores term as the most recent search with its result count and
// forgets the oldest terms beyond the limit.
func (s *Store) Record(ctx context.Context, term string, resultCount int) error {
	term = normalize(term)
	if term == "" {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, termsKey, redis.Z{Score: float64(s.now().UnixMilli()), Member: term})
		pipe.HSet(ctx, countsKey, term, resultCount)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record search term: %w", err)
	}

	size, err := s.client.ZCard(ctx, termsKey).Result()
	if err != nil {
		return fmt.Errorf("redis count search terms: %w", err)
	}
	if excess := size - int64(s.maxTerms); excess > 0 {
		evicted, err := s.client.ZPopMin(ctx, termsKey, excess).Result()
		if err != nil {
			return fmt.Errorf("redis trim search terms: %w", err)
		}
		fields := make([]string, 0, len(evicted))
		for _, z := range evicted {
			if m, ok := z.Member.(string); ok {
				fields = append(fields, m)
			}
		}
		if len(fields) > 0 {
			if err := s.client.HDel(ctx, countsKey, fields...).Err(); err != nil {
				return fmt.Errorf("redis trim search counts: %w", err)
			}
		}
	}

	return nil
}

// Recent returns up to limit of the most recently used terms containing
// prefix, newest first.
func (s *Store) Recent(ctx context.Context, prefix string, limit int) ([]domain.HistoryTerm, error) {
	prefix = normalize(prefix)
	if limit <= 0 {
		return []domain.HistoryTerm{}, nil
	}

	all, err := s.client.ZRevRange(ctx, termsKey, 0, int64(s.maxTerms-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read search terms: %w", err)
	}

	terms := make([]string, 0, limit)
	for _, t := range all {
		if strings.Contains(t, prefix) {
			terms = append(terms, t)
			if len(terms) == limit {
				break
			}
		}
	}
	if len(terms) == 0 {
		return []domain.HistoryTerm{}, nil
	}

	counts, err := s.client.HMGet(ctx, countsKey, terms...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read search counts: %w", err)
	}

	out := make([]domain.HistoryTerm, 0, len(terms))
	for i, t := range terms {
		out = append(out, domain.HistoryTerm{Term: t, ResultCount: parseCount(counts[i])})
	}
	return out, nil
}

func parseCount(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func normalize(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
