package model

import "time"

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"console"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"rfc3339"`
	Output     string `envconfig:"LOG_OUTPUT" default:"stderr"`
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"logs/hybridchat.log"`
}

// GraphConfig configures the embedded graph store.
type GraphConfig struct {
	Path     string `envconfig:"GRAPH_DB_PATH" default:"data/hybridchat.db"`
	PoolSize int    `envconfig:"GRAPH_MAX_CONN_POOL_SIZE" default:"50"`
}

// RunnerConfig tunes the background resource runner.
type RunnerConfig struct {
	QueueSize    int           `envconfig:"RUNNER_QUEUE_SIZE" default:"256"`
	StopTimeout  time.Duration `envconfig:"RUNNER_STOP_TIMEOUT" default:"5s"`
	GracePeriod  time.Duration `envconfig:"RUNNER_GRACE_PERIOD" default:"2s"`
	FetchTimeout time.Duration `envconfig:"RUNNER_FETCH_TIMEOUT" default:"30s"`
}

// EmbedConfig configures the embedding client.
type EmbedConfig struct {
	APIKey      string `envconfig:"OPENAI_API_KEY"`
	BaseURL     string `envconfig:"OPENAI_EMBED_URL" default:"https://api.openai.com/v1/embeddings"`
	Model       string `envconfig:"EMBED_MODEL" default:"text-embedding-3-small"`
	Concurrency int    `envconfig:"EMBED_CONCURRENCY" default:"8"`
	BatchSize   int    `envconfig:"EMBED_BATCH_SIZE" default:"32"`
}

// CacheConfig configures the two-tier embedding cache. An empty RedisURL
// disables the remote tier.
type CacheConfig struct {
	RedisURL string        `envconfig:"EMBEDDING_REDIS_URL"`
	TTL      time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`
	Dir      string        `envconfig:"EMBEDDING_CACHE_DIR" default:"cache"`
}

// PineconeConfig configures the vector index client.
type PineconeConfig struct {
	APIKey    string `envconfig:"PINECONE_API_KEY"`
	IndexHost string `envconfig:"PINECONE_INDEX_HOST"`
	IndexName string `envconfig:"PINECONE_INDEX_NAME" default:"vietnam-travel"`
	Dimension int    `envconfig:"PINECONE_VECTOR_DIM" default:"1536"`
	TopK      int    `envconfig:"PINECONE_TOP_K" default:"10"`
}

// ChatConfig configures the chat model.
type ChatConfig struct {
	APIKey      string  `envconfig:"OPENAI_API_KEY"`
	BaseURL     string  `envconfig:"OPENAI_BASE_URL"`
	Model       string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int     `envconfig:"CHAT_MAX_TOKENS" default:"1200"`
	Temperature float64 `envconfig:"CHAT_TEMPERATURE" default:"0.2"`
	Template    string  `envconfig:"CHAT_TEMPLATE" default:"concise"`
}

// VizConfig configures the visualization server.
type VizConfig struct {
	Addr      string `envconfig:"VIZ_ADDR" default:":5000"`
	StaticDir string `envconfig:"VIZ_STATIC_DIR" default:"."`
	DataDir   string `envconfig:"VIZ_DATA_DIR" default:"data"`
}
