package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sdfrontend/internal/core"
	"sdfrontend/internal/util"

	"github.com/redis/go-redis/v9"
)

const (
	statsRedisKey = "sdfrontend:stats"
)

// FileStorage persists usage stats as a JSON file
type FileStorage struct {
	filePath string
}

// NewFileStorage creates file storage; an empty path uses core.DefaultStatsFilePath
func NewFileStorage(filePath string) *FileStorage {
	if filePath == "" {
		filePath = core.DefaultStatsFilePath
	}
	return &FileStorage{filePath: filePath}
}

// SaveStats writes to a temp file and renames it over the stats file.
func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSONIndent(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.filePath), filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close stats file: %w", err)
	}
	if err := os.Chmod(tmpName, core.FilePermissionReadWrite); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod stats file: %w", err)
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}

func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &core.RequestStats{RequestHistory: []core.RequestRecord{}}, nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := util.UnmarshalJSON(data, &stats); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fs.filePath, err)
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage persists usage stats under a single Redis key
type RedisStorage struct {
	client *redis.Client
	ctx    context.Context
	key    string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	Key string
}

func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	key := config.Key
	if key == "" {
		key = statsRedisKey
	}

	return &RedisStorage{client: client, ctx: ctx, key: key}, nil
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return err
	}
	return rs.client.Set(rs.ctx, rs.key, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	val, err := rs.client.Get(rs.ctx, rs.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &core.RequestStats{RequestHistory: []core.RequestRecord{}}, nil
		}
		return nil, err
	}

	var stats core.RequestStats
	if err := util.UnmarshalJSON([]byte(val), &stats); err != nil {
		return nil, fmt.Errorf("decode redis key %s: %w", rs.key, err)
	}

	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}

	return &stats, nil
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

// InitStorage picks Redis when REDIS_URL is set and reachable, file storage otherwise.
func InitStorage(logger core.Logger) core.StorageInterface {
	filePath := util.GetEnvWithDefault("STATS_FILE", core.DefaultStatsFilePath)
	redisURL := os.Getenv("REDIS_URL")

	if redisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{
			URL: redisURL,
			Key: statsRedisKey,
		})
		if err != nil {
			logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
			return NewFileStorage(filePath)
		}
		logger.Info("Using Redis storage")
		return redisStorage
	}

	logger.Info("Using file storage at %s", filePath)
	return NewFileStorage(filePath)
}
