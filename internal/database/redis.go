package database

import (
	"sync"
	"time"

	"rentdesk/pkg/cache"
	"rentdesk/pkg/config"
)

var (
	statsCacheInstance *cache.RedisCache
	statsCacheOnce     sync.Once
)

// GetStatsCache 获取统计缓存的单例实例
// 缓存未启用时返回nil，调用方需要容忍nil
func GetStatsCache() *cache.RedisCache {
	statsCacheOnce.Do(func() {
		cfg := config.GetConfig()
		if !cfg.Cache.Enabled {
			return
		}
		statsCacheInstance = cache.NewRedisCache(&cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		})
	})
	return statsCacheInstance
}

// CloseStatsCache 关闭缓存连接
func CloseStatsCache() error {
	if statsCacheInstance != nil {
		return statsCacheInstance.Close()
	}
	return nil
}
