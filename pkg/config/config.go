package config

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// QueueConfig controls job scheduling.
type QueueConfig struct {
	// Concurrency caps simultaneously running jobs; 0 means auto (CPU count - 1).
	Concurrency int `mapstructure:"concurrency"`
}

// TranscodeConfig 转码配置
type TranscodeConfig struct {
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Encoding EncodingConfig `mapstructure:"encoding"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	Output   OutputConfig   `mapstructure:"output"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"`
	ProbePath  string `mapstructure:"probe_path"`
	// Rubberband selects the audio time-stretch filter: auto probes the
	// ffmpeg build for the rubberband filter, on/off force the choice.
	Rubberband string `mapstructure:"rubberband"`
}

// EncodingConfig describes the slowdown output encoding.
type EncodingConfig struct {
	VideoEncoder  string `mapstructure:"video_encoder"`
	VideoPreset   string `mapstructure:"video_preset"`
	VideoCRF      int    `mapstructure:"video_crf"`
	AudioCodec    string `mapstructure:"audio_codec"`
	AudioBitrate  int    `mapstructure:"audio_bitrate"`
	CopySubtitles bool   `mapstructure:"copy_subtitles"`
}

// PreviewConfig clips a short centered window for quick A/B checks.
type PreviewConfig struct {
	Seconds int `mapstructure:"seconds"`
}

// OutputConfig controls output naming for submitted jobs.
type OutputConfig struct {
	Dir             string   `mapstructure:"dir"`
	Suffix          string   `mapstructure:"suffix"`
	Overwrite       bool     `mapstructure:"overwrite"`
	MediaExtensions []string `mapstructure:"media_extensions"`
}

// DatabaseConfig 数据库配置（可选的作业历史存储）
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置（可选的事件发布）
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
	EventChannel string        `mapstructure:"event_channel"`
}

// KafkaConfig Kafka配置（可选的作业提交来源）
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	BootstrapServers []string `mapstructure:"bootstrap_servers"`
	ClientID         string   `mapstructure:"client_id"`
	GroupID          string   `mapstructure:"group_id"`
	SubmitTopic      string   `mapstructure:"submit_topic"`
}

// ProfilingConfig 持续性能分析配置
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig 设置全局配置
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", 8084)
	v.SetDefault("log.level", "info")
	v.SetDefault("kafka.client_id", "slowdown-service")
	v.SetDefault("kafka.group_id", "slowdown-service-group")
	v.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	v.SetDefault("kafka.submit_topic", "slowdown.jobs")
	v.SetDefault("redis.event_channel", "slowdown.events")
	v.SetDefault("transcode.encoding.copy_subtitles", true)

	// 设置环境变量前缀
	v.SetEnvPrefix("GO_SLOWDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8084
	}

	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = runtime.NumCPU() - 1
		if c.Queue.Concurrency < 1 {
			c.Queue.Concurrency = 1
		}
	}

	if c.Transcode.FFmpeg.Rubberband == "" {
		c.Transcode.FFmpeg.Rubberband = "auto"
	}
	if c.Transcode.Encoding.VideoEncoder == "" {
		c.Transcode.Encoding.VideoEncoder = "libx264"
	}
	if c.Transcode.Encoding.VideoPreset == "" {
		c.Transcode.Encoding.VideoPreset = "slow"
	}
	if c.Transcode.Encoding.VideoCRF <= 0 {
		c.Transcode.Encoding.VideoCRF = 18
	}
	if c.Transcode.Encoding.AudioCodec == "" {
		c.Transcode.Encoding.AudioCodec = "aac"
	}
	if c.Transcode.Encoding.AudioBitrate <= 0 {
		c.Transcode.Encoding.AudioBitrate = 192
	}
	if c.Transcode.Preview.Seconds <= 0 {
		c.Transcode.Preview.Seconds = 20
	}
	if c.Transcode.Output.Suffix == "" {
		c.Transcode.Output.Suffix = " (1x)"
	}
	if len(c.Transcode.Output.MediaExtensions) == 0 {
		c.Transcode.Output.MediaExtensions = []string{
			".mp4", ".mkv", ".mov", ".avi", ".webm", ".m4a", ".mp3", ".wav", ".flac",
		}
	}

	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Redis.EventChannel == "" {
		c.Redis.EventChannel = "slowdown.events"
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "slowdown-service"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "slowdown-service-group"
	}
	if c.Kafka.SubmitTopic == "" {
		c.Kafka.SubmitTopic = "slowdown.jobs"
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
