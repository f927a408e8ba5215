package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers  []string
	KafkaGroupID  string
	DecisionTopic string
	CorpusTopic   string

	// Embedding provider
	EmbeddingBaseURL   string
	EmbeddingAPIKey    string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingTimeout   time.Duration

	// Remote policy lookup
	LookupBaseURL      string
	LookupTimeout      time.Duration
	LookupMaxResults   int
	LookupCacheTTL     time.Duration
	LookupClientID     string
	LookupClientSecret string
	LookupTokenURL     string

	// Retrieval
	RetrievalTopK          int
	RetrievalBudget        time.Duration
	RetrievalMaxCandidates int

	// Decision
	ChecklistPath        string
	ApprovedThreshold    float64
	ConditionalThreshold float64

	// Policy index
	IndexPath    string
	ChunkSize    int
	ChunkOverlap int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "claimsight"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "claimsight123"),
		PostgresDB:       getEnv("POSTGRES_DB", "claimsight"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "claimsight-platform"),
		DecisionTopic: getEnv("KAFKA_DECISION_TOPIC", "decision-events"),
		CorpusTopic:   getEnv("KAFKA_CORPUS_TOPIC", "corpus-events"),

		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:9090/v1/embed"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingDimension: getIntEnv("EMBEDDING_DIMENSION", 384),
		EmbeddingTimeout:   getDuration("EMBEDDING_TIMEOUT", 15*time.Second),

		LookupBaseURL:      getEnv("LOOKUP_BASE_URL", ""),
		LookupTimeout:      getDuration("LOOKUP_TIMEOUT", 10*time.Second),
		LookupMaxResults:   getIntEnv("LOOKUP_MAX_RESULTS", 3),
		LookupCacheTTL:     getDuration("LOOKUP_CACHE_TTL", 15*time.Minute),
		LookupClientID:     getEnv("LOOKUP_CLIENT_ID", ""),
		LookupClientSecret: getEnv("LOOKUP_CLIENT_SECRET", ""),
		LookupTokenURL:     getEnv("LOOKUP_TOKEN_URL", ""),

		RetrievalTopK:          getIntEnv("RETRIEVAL_TOP_K", 5),
		RetrievalBudget:        getDuration("RETRIEVAL_BUDGET", 12*time.Second),
		RetrievalMaxCandidates: getIntEnv("RETRIEVAL_MAX_CANDIDATES", 8),

		ChecklistPath:        getEnv("CHECKLIST_PATH", ""),
		ApprovedThreshold:    getFloatEnv("APPROVED_THRESHOLD", 80),
		ConditionalThreshold: getFloatEnv("CONDITIONAL_THRESHOLD", 50),

		IndexPath:    getEnv("INDEX_PATH", "data/policy-index.bin"),
		ChunkSize:    getIntEnv("CHUNK_SIZE", 400),
		ChunkOverlap: getIntEnv("CHUNK_OVERLAP", 50),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
