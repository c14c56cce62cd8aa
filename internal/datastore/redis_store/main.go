package redis_store

import (
	"context"
	"fmt"
	"strings"

	"memedrop/internal/models"

	"github.com/redis/go-redis/v9"
)

func dbKeyLeaderboard(name string) string {
	return fmt.Sprintf("leaderboard:%s", strings.ToLower(name))
}

func SetLeaderboard(ctx context.Context, cmd redis.Cmdable, name string, v *models.LeaderboardItem) (*models.LeaderboardItem, error) {
	err := cmd.ZAdd(ctx, dbKeyLeaderboard(name), redis.Z{
		Score:  v.Score,
		Member: v.UserID,
	}).Err()

	if err != nil {
		return nil, err
	}

	return v, nil
}

func ClearLeaderboard(ctx context.Context, cmd redis.Cmdable, name string) error {
	return cmd.Del(ctx, dbKeyLeaderboard(name)).Err()
}

func GetLeaderboard(ctx context.Context, cmd redis.Cmdable, name string, num int) ([]*models.LeaderboardItem, error) {
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyLeaderboard(name), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	var results []*models.LeaderboardItem
	for i, item := range items {
		id, _ := item.Member.(string)
		results = append(results, &models.LeaderboardItem{
			UserID: id,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}

	return results, nil
}

func GetRank(ctx context.Context, cmd redis.Cmdable, name string, userID string) (int64, error) {
	rank, err := cmd.ZRevRank(ctx, dbKeyLeaderboard(name), userID).Result()
	if err != nil {
		return -1, err
	}

	return rank, nil
}
