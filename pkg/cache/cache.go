package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache 统计数据缓存
// 仅用于加速统计接口，过期由TTL控制，不做主动失效
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisCache 创建缓存实例
func NewRedisCache(config *Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "rentdesk:cache"
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Close 关闭Redis连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping 测试Redis连接
func (r *RedisCache) Ping() error {
	ctx := context.Background()
	return r.client.Ping(ctx).Err()
}

// Get 读取缓存并反序列化到dest，未命中返回false
func (r *RedisCache) Get(key string, dest interface{}) (bool, error) {
	ctx := context.Background()

	data, err := r.client.Get(ctx, r.cacheKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("反序列化缓存数据失败: %v", err)
	}
	return true, nil
}

// Set 序列化并写入缓存
func (r *RedisCache) Set(key string, value interface{}) error {
	ctx := context.Background()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存数据失败: %v", err)
	}

	return r.client.Set(ctx, r.cacheKey(key), data, r.ttl).Err()
}

// Delete 删除缓存键
func (r *RedisCache) Delete(keys ...string) error {
	ctx := context.Background()

	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, r.cacheKey(key))
	}
	return r.client.Del(ctx, fullKeys...).Err()
}

func (r *RedisCache) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
