package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

const positionTTL = 24 * time.Hour

func positionKey(carID uint) string {
	return fmt.Sprintf("car:%d:position", carID)
}

// CacheCarPosition stores the most recent GPS fix for a car. The durable
// trail lives in the tracker_pings table; this is the hot read path.
func CacheCarPosition(ctx context.Context, carID uint, position map[string]any) error {
	rdb := GetRedisClient()
	if rdb == nil {
		return nil
	}
	value, err := json.Marshal(position)
	if err != nil {
		return err
	}
	if err := rdb.SetEx(ctx, positionKey(carID), value, positionTTL).Err(); err != nil {
		log.Printf("Failed to cache position for car %d: %s\n", carID, err.Error())
		return err
	}
	return nil
}

func GetCarPosition(ctx context.Context, carID uint) (map[string]any, error) {
	rdb := GetRedisClient()
	if rdb == nil {
		return nil, redis.Nil
	}
	value, err := rdb.Get(ctx, positionKey(carID)).Result()
	if err != nil {
		return nil, err
	}
	var position map[string]any
	if err := json.Unmarshal([]byte(value), &position); err != nil {
		return nil, err
	}
	return position, nil
}
