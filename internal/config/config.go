package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App    App    `mapstructure:"app"`
	OpenAI OpenAI `mapstructure:"openai"`
	Voyage Voyage `mapstructure:"voyage"`
	Search Search `mapstructure:"search"`
	Scrape Scrape `mapstructure:"scrape"`
	Batch  Batch  `mapstructure:"batch"`
	Topics Topics `mapstructure:"topics"`
	Server Server `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// OpenAI holds the LLM API configuration. The same credentials serve the
// synchronous completion path and the asynchronous batch endpoints.
type OpenAI struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	SummaryModel   string  `mapstructure:"summary_model"`
	FilterModel    string  `mapstructure:"filter_model"`
	LabelModel     string  `mapstructure:"label_model"`
	DescribeModel  string  `mapstructure:"describe_model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	RequestTimeout string  `mapstructure:"request_timeout"`
}

// Voyage holds the embeddings API configuration.
type Voyage struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch_size"`
}

// Search holds collection configuration for the SerpAPI provider.
type Search struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	Query        string `mapstructure:"query"`
	Location     string `mapstructure:"location"`
	GoogleDomain string `mapstructure:"google_domain"`
	Country      string `mapstructure:"country"`
	Language     string `mapstructure:"language"`
	MaxPages     int    `mapstructure:"max_pages"`
	Timeout      string `mapstructure:"timeout"`
}

// Scrape holds article text retrieval configuration.
type Scrape struct {
	Delay    string `mapstructure:"delay"`
	Timeout  string `mapstructure:"timeout"`
	MinChars int    `mapstructure:"min_chars"`
}

// Batch holds batch-job lifecycle configuration.
type Batch struct {
	CompletionWindow string `mapstructure:"completion_window"`
	PollInterval     string `mapstructure:"poll_interval"`
}

// Topics holds topic modeling configuration.
type Topics struct {
	MinClusterSize int `mapstructure:"min_cluster_size"`
	MinDocuments   int `mapstructure:"min_documents"`
	KeywordCount   int `mapstructure:"keyword_count"`
	SampleSize     int `mapstructure:"sample_size"`
}

// Server holds dashboard server configuration.
type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	CORS bool   `mapstructure:"cors"`
}

var globalConfig *Config

// Load loads the configuration from file, environment and defaults.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".radar")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".radar-data")

	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.summary_model", "gpt-4o-mini")
	viper.SetDefault("openai.filter_model", "gpt-4o-mini")
	viper.SetDefault("openai.label_model", "gpt-4o-mini")
	viper.SetDefault("openai.describe_model", "gpt-4o")
	viper.SetDefault("openai.temperature", 0.3)
	viper.SetDefault("openai.max_tokens", 1000)
	viper.SetDefault("openai.request_timeout", "120s")

	viper.SetDefault("voyage.base_url", "https://api.voyageai.com/v1")
	viper.SetDefault("voyage.model", "voyage-3.5-lite")
	viper.SetDefault("voyage.batch_size", 128)

	viper.SetDefault("search.provider", "serpapi")
	viper.SetDefault("search.query", "(discoverability AND culture) OR (discoverability AND creative) OR (discoverability AND content)")
	viper.SetDefault("search.google_domain", "google.com")
	viper.SetDefault("search.country", "us")
	viper.SetDefault("search.language", "en")
	viper.SetDefault("search.max_pages", 0)
	viper.SetDefault("search.timeout", "30s")

	viper.SetDefault("scrape.delay", "500ms")
	viper.SetDefault("scrape.timeout", "30s")
	viper.SetDefault("scrape.min_chars", 100)

	viper.SetDefault("batch.completion_window", "24h")
	viper.SetDefault("batch.poll_interval", "30s")

	viper.SetDefault("topics.min_cluster_size", 10)
	viper.SetDefault("topics.min_documents", 10)
	viper.SetDefault("topics.keyword_count", 10)
	viper.SetDefault("topics.sample_size", 30)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8501)
	viper.SetDefault("server.cors", false)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("openai.api_key", []string{"OPENAI_API_KEY"})
	bindEnvKeys("voyage.api_key", []string{"VOYAGE_API_KEY", "VOYAGEAI_API_KEY"})
	bindEnvKeys("search.api_key", []string{"SERPAPI_API_KEY", "SERPAPI_KEY"})
	bindEnvKeys("app.debug", []string{"RADAR_DEBUG", "DEBUG"})
	bindEnvKeys("app.data_dir", []string{"RADAR_DATA_DIR"})
}

// bindEnvKeys binds the first set environment variable from names to key.
func bindEnvKeys(key string, names []string) {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			viper.Set(key, value)
			return
		}
	}
}
