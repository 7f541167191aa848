package redis

import (
	"context"
	"strconv"

	"github.com/opsgrid/sitepulse/internal/db"
)

// ZAddGT inserts or updates a sorted-set member, keeping the greater score
// (ZADD GT). Re-delivered or out-of-order older timestamps never win.
func (s *Store) ZAddGT(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).Gt().ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZCount counts members with score in [min, max].
func (s *Store) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	cmd := s.b().Zcount().Key(key).Min(formatScore(min)).Max(formatScore(max)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCount, Err: err}
	}
	return n, nil
}

// ZRevRangeByScore returns up to limit members with score in [min, max],
// highest score first. limit <= 0 returns all members in range.
func (s *Store) ZRevRangeByScore(ctx context.Context, key string, max, min float64, limit int64) ([]string, error) {
	b := s.b().Zrevrangebyscore().Key(key).Max(formatScore(max)).Min(formatScore(min))

	var members []string
	var err error
	if limit > 0 {
		members, err = s.do(ctx, b.Limit(0, limit).Build()).AsStrSlice()
	} else {
		members, err = s.do(ctx, b.Build()).AsStrSlice()
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRangeByScore, Err: err}
	}
	return members, nil
}

// ZRemRangeByScore removes members with score in [min, max] and returns the
// number removed. Removing nothing is not an error.
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	cmd := s.b().Zremrangebyscore().Key(key).Min(formatScore(min)).Max(formatScore(max)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZRemRangeByScore, Err: err}
	}
	return n, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
