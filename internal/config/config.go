package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`  // PostgreSQL配置
	Sync      SyncConfig                `mapstructure:"sync"`      // 采集任务配置
	Bungie    BungieConfig              `mapstructure:"bungie"`    // 游戏侧接口配置
	Providers map[string]ProviderConfig `mapstructure:"providers"` // 多视频平台独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres / sqlite（sqlite 时 DSN 为文件路径）
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// SyncConfig 采集任务配置
type SyncConfig struct {
	Interval         time.Duration `mapstructure:"interval"`          // 定时采集间隔，0 表示只通过接口触发
	Workers          int           `mapstructure:"workers"`           // 单轮采集并发上限
	CallTimeout      time.Duration `mapstructure:"call_timeout"`      // 单次外部调用超时
	ClipRecency      time.Duration `mapstructure:"clip_recency"`      // 录像“新鲜”窗口
	ClipBatchSize    int           `mapstructure:"clip_batch_size"`   // 每轮刷新的视频账号数
	ProfileBatch     int           `mapstructure:"profile_batch"`     // 每轮刷新的游戏账号数
	EnabledProviders []string      `mapstructure:"enabled_providers"` // 启用的视频平台列表
	ThumbnailWidth   int           `mapstructure:"thumbnail_width"`   // 缩略图模板宽
	ThumbnailHeight  int           `mapstructure:"thumbnail_height"`  // 缩略图模板高
}

// BungieConfig 游戏侧接口配置
type BungieConfig struct {
	BaseURL  string `mapstructure:"base_url"`  // https://www.bungie.net/Platform
	StatsURL string `mapstructure:"stats_url"` // https://stats.bungie.net/Platform（PGCR）
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"` // 请求超时（秒）
	Proxy    string `mapstructure:"proxy"`
}

// ProviderConfig 单个视频平台的独立配置
type ProviderConfig struct {
	BaseURL      string `mapstructure:"base_url"`      // API基础地址
	TokenURL     string `mapstructure:"token_url"`     // OAuth token 地址（Twitch app token）
	Timeout      int    `mapstructure:"timeout"`       // 请求超时（秒）
	ClientID     string `mapstructure:"client_id"`     // Twitch/Mixer Client-ID
	ClientSecret string `mapstructure:"client_secret"` // Twitch client secret
	APIKey       string `mapstructure:"api_key"`       // YouTube API Key
	Proxy        string `mapstructure:"proxy"`         // 代理地址
	MaxPages     int    `mapstructure:"max_pages"`     // 单账号最多翻页数
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("bungie.base_url", "https://www.bungie.net/Platform")
	v.SetDefault("bungie.stats_url", "https://stats.bungie.net/Platform")
	v.SetDefault("bungie.timeout", 15)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.call_timeout", 20*time.Second)
	v.SetDefault("sync.clip_recency", 72*time.Hour)
	v.SetDefault("sync.clip_batch_size", 200)
	v.SetDefault("sync.profile_batch", 50)
	v.SetDefault("sync.enabled_providers", []string{"twitch", "youtube", "mixer"})
	v.SetDefault("sync.thumbnail_width", 320)
	v.SetDefault("sync.thumbnail_height", 180)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if t, ok := cfg.Providers["twitch"]; ok {
		if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
			t.ClientID = v
		}
		if v := os.Getenv("TWITCH_CLIENT_SECRET"); v != "" {
			t.ClientSecret = v
		}
		cfg.Providers["twitch"] = t
	}
	if y, ok := cfg.Providers["youtube"]; ok {
		if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
			y.APIKey = v
		}
		cfg.Providers["youtube"] = y
	}
	if m, ok := cfg.Providers["mixer"]; ok {
		if v := os.Getenv("MIXER_CLIENT_ID"); v != "" {
			m.ClientID = v
		}
		cfg.Providers["mixer"] = m
	}
	if v := os.Getenv("BUNGIE_API_KEY"); v != "" {
		cfg.Bungie.APIKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

// ProviderEnabled 某视频平台是否在启用列表中
func (s *SyncConfig) ProviderEnabled(name string) bool {
	for _, p := range s.EnabledProviders {
		if p == name {
			return true
		}
	}
	return false
}
