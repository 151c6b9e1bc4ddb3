package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	Journey  JourneyConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	journey, err := loadJourneyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: database,
		AI:       ai,
		Journey:  journey,
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
		},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Database drivers understood by store.Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DatabaseConfig 描述持久化存储配置。
type DatabaseConfig struct {
	Driver string
	DSN    string
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite))
	switch driver {
	case DriverSQLite, DriverMySQL:
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER value %q: want %s or %s", driver, DriverSQLite, DriverMySQL)
	}

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		if driver == DriverMySQL {
			return DatabaseConfig{}, fmt.Errorf("DB_DSN is required when DB_DRIVER=%s", DriverMySQL)
		}
		dsn = "heartnote.db"
	}

	return DatabaseConfig{Driver: driver, DSN: dsn}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey              string
	AccessKey           string
	SecretKey           string
	Model               string
	BaseURL             string
	Region              string
	Temperature         *float64
	TopP                *float64
	MaxTokens           *int
	ReplyEnabled        bool
	CompanionName       string
	EmotionLLMEnabled   bool
	EmotionHistoryLimit int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	replyEnabled, err := parseBoolEnv("AI_REPLY_ENABLED", true)
	if err != nil {
		return AIConfig{}, err
	}

	emotionEnabled, err := parseBoolEnv("AI_EMOTION_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	emotionHistory := 6
	if historyOverride, err := parseOptionalIntEnv("AI_EMOTION_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if historyOverride != nil {
		if *historyOverride < 1 {
			emotionHistory = 1
		} else {
			emotionHistory = *historyOverride
		}
	}

	return AIConfig{
		APIKey:              strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:           strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:           strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:               strings.TrimSpace(os.Getenv("Model")),
		BaseURL:             getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:              getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:         temperature,
		TopP:                topP,
		MaxTokens:           maxTokens,
		ReplyEnabled:        replyEnabled,
		CompanionName:       getEnvOrDefault("AI_COMPANION_NAME", "Echo"),
		EmotionLLMEnabled:   emotionEnabled,
		EmotionHistoryLimit: emotionHistory,
	}, nil
}

// JourneyConfig 描述旅程统计的规则参数。
type JourneyConfig struct {
	ConfidenceThreshold float64  `yaml:"confidenceThreshold"`
	GoalKeywords        []string `yaml:"goalKeywords"`
	MaxPageLimit        int      `yaml:"maxPageLimit"`
	PreviewLimit        int      `yaml:"previewLimit"`
}

// DefaultGoalKeywords are matched as lower-case substrings of message content.
var DefaultGoalKeywords = []string{"goal", "achieve", "success", "complete", "finish", "accomplish"}

// DefaultJourneyConfig returns the built-in journey rules.
func DefaultJourneyConfig() JourneyConfig {
	return JourneyConfig{
		ConfidenceThreshold: 0.5,
		GoalKeywords:        append([]string(nil), DefaultGoalKeywords...),
		MaxPageLimit:        100,
		PreviewLimit:        5,
	}
}

// loadJourneyConfig 先读取 JOURNEY_CONFIG_FILE（可选），再由环境变量覆盖。
func loadJourneyConfig() (JourneyConfig, error) {
	cfg := DefaultJourneyConfig()

	if path := strings.TrimSpace(os.Getenv("JOURNEY_CONFIG_FILE")); path != "" {
		if err := overlayJourneyFile(&cfg, path); err != nil {
			return JourneyConfig{}, err
		}
	}

	threshold, err := parseOptionalFloatEnv("JOURNEY_CONFIDENCE_THRESHOLD")
	if err != nil {
		return JourneyConfig{}, err
	}
	if threshold != nil {
		cfg.ConfidenceThreshold = *threshold
	}

	if raw := strings.TrimSpace(os.Getenv("JOURNEY_GOAL_KEYWORDS")); raw != "" {
		cfg.GoalKeywords = splitKeywords(raw)
	}

	maxLimit, err := parseOptionalIntEnv("JOURNEY_MAX_PAGE_LIMIT")
	if err != nil {
		return JourneyConfig{}, err
	}
	if maxLimit != nil {
		cfg.MaxPageLimit = *maxLimit
	}

	preview, err := parseOptionalIntEnv("JOURNEY_PREVIEW_LIMIT")
	if err != nil {
		return JourneyConfig{}, err
	}
	if preview != nil {
		cfg.PreviewLimit = *preview
	}

	if err := cfg.Validate(); err != nil {
		return JourneyConfig{}, err
	}
	return cfg, nil
}

// Validate 校验规则参数的取值范围。
func (c JourneyConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid journey confidence threshold %v: must be within [0, 1]", c.ConfidenceThreshold)
	}
	if c.MaxPageLimit < 1 {
		return fmt.Errorf("invalid journey max page limit %d: must be positive", c.MaxPageLimit)
	}
	if c.PreviewLimit < 1 {
		return fmt.Errorf("invalid journey preview limit %d: must be positive", c.PreviewLimit)
	}
	if len(c.GoalKeywords) == 0 {
		return errors.New("journey goal keywords must not be empty")
	}
	return nil
}

func overlayJourneyFile(cfg *JourneyConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("journey config file %s does not exist", path)
		}
		return fmt.Errorf("read journey config file %s: %w", path, err)
	}

	var file JourneyConfig
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("parse yaml journey config %s: %w", path, err)
	}

	// Zero values in the file keep the defaults.
	if file.ConfidenceThreshold != 0 {
		cfg.ConfidenceThreshold = file.ConfidenceThreshold
	}
	if len(file.GoalKeywords) > 0 {
		cfg.GoalKeywords = normalizeKeywords(file.GoalKeywords)
	}
	if file.MaxPageLimit != 0 {
		cfg.MaxPageLimit = file.MaxPageLimit
	}
	if file.PreviewLimit != 0 {
		cfg.PreviewLimit = file.PreviewLimit
	}
	return nil
}

func splitKeywords(raw string) []string {
	return normalizeKeywords(strings.Split(raw, ","))
}

func normalizeKeywords(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level string
	File  string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
