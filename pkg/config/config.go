package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// ClassifierConfig selects how user queries are classified.
// Backend is "openai" or "engine"; Profile is "finance" or "marine".
type ClassifierConfig struct {
	Backend string `mapstructure:"backend"`
	Profile string `mapstructure:"profile"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// EngineConfig points at the RAG engine.
type EngineConfig struct {
	URL             string        `mapstructure:"url"`
	Authorization   string        `mapstructure:"authorization"`
	AppID           string        `mapstructure:"app_id"`
	SourceService   string        `mapstructure:"source_service"`
	TableName       string        `mapstructure:"table_name"`
	EmbeddingColumn string        `mapstructure:"embedding_column"`
	ContentColumn   string        `mapstructure:"content_column"`
	TopK            int           `mapstructure:"top_k"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// Destination is a named backend system.
type Destination struct {
	URL           string `mapstructure:"url"`
	Authorization string `mapstructure:"authorization"`
}

type GatewayConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	SystemAlias       string        `mapstructure:"system_alias"`
	ProcurementAlias  string        `mapstructure:"procurement_alias"`
	SAPClient         string        `mapstructure:"sap_client"`
	LinkBaseURL       string        `mapstructure:"link_base_url"`
	Documents         Destination   `mapstructure:"documents"`
	Analytics         Destination   `mapstructure:"analytics"`
	Procurement       Destination   `mapstructure:"procurement"`
}

type AnalyticsConfig struct {
	Path              string `mapstructure:"path"`
	DefaultClient     string `mapstructure:"default_client"`
	AerospaceClient   string `mapstructure:"aerospace_client"`
	ElectronicsClient string `mapstructure:"electronics_client"`
}

type ChatConfig struct {
	MemoryLimit int    `mapstructure:"memory_limit"`
	MailAppID   string `mapstructure:"mail_app_id"`
}

// PromptsConfig maps category tags to template files replacing the built-in prompts.
type PromptsConfig struct {
	Overrides map[string]string `mapstructure:"overrides"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)

	v.SetDefault("classifier.backend", "openai")
	v.SetDefault("classifier.profile", "finance")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("engine.app_id", "BILLING-CHATBOT")
	v.SetDefault("engine.source_service", "BILLING")
	v.SetDefault("engine.table_name", "SAP_TISCE_DEMO_DOCUMENTCHUNK")
	v.SetDefault("engine.embedding_column", "EMBEDDING")
	v.SetDefault("engine.content_column", "TEXT_CHUNK")
	v.SetDefault("engine.top_k", 30)
	v.SetDefault("engine.timeout", 90*time.Second)

	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.requests_per_second", 10.0)
	v.SetDefault("gateway.burst", 5)
	v.SetDefault("gateway.system_alias", "AERO288")
	v.SetDefault("gateway.procurement_alias", "MRNE188")
	v.SetDefault("gateway.sap_client", "888")

	v.SetDefault("analytics.path", "api/v1/datasphere/consumption/relational/GROUP_IT_SAP/4GV_FF_S_FI_OTCKPI_01/_4GV_FF_S_FI_OTCKPI_01")
	v.SetDefault("analytics.default_client", "Aerospace 288")
	v.SetDefault("analytics.aerospace_client", "Aerospace 288")
	v.SetDefault("analytics.electronics_client", "Electronics 288")

	v.SetDefault("chat.memory_limit", 20)
	v.SetDefault("chat.mail_app_id", "MAIL-CHATBOT")
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if engineURL := v.GetString("AI_ENGINE_URL"); engineURL != "" {
		config.Engine.URL = engineURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	switch c.Classifier.Backend {
	case "openai", "engine":
	default:
		return fmt.Errorf("unknown classifier backend %q", c.Classifier.Backend)
	}
	switch c.Classifier.Profile {
	case "finance", "marine":
	default:
		return fmt.Errorf("unknown classifier profile %q", c.Classifier.Profile)
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("engine.url is required")
	}
	return nil
}
