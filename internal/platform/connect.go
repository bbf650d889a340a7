package platform

import (
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

// LoadEnv loads the .env file. Missing files are fine; real deployments
// set the environment directly.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

// NewRedisClient initializes a Redis client when REDIS_URL is set.
// Redis is optional here: it only backs request rate limiting, so a nil
// return disables that middleware rather than failing startup.
func NewRedisClient() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	log.Println("Redis client initialized")
	return rdb
}
