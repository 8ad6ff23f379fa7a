package config

type QueueConfig struct {
	RedisURL    string `yaml:"redis_url"`
	Concurrency int    `yaml:"concurrency"`
	MaxRetry    int    `yaml:"max_retry"`
}

// Enabled reports whether email delivery should go through the job queue.
func (q *QueueConfig) Enabled() bool {
	return q.RedisURL != ""
}

func loadQueueConfig() *QueueConfig {
	return &QueueConfig{
		RedisURL:    getEnv("QUEUE_REDIS_URL", ""),
		Concurrency: getEnvAsInt("QUEUE_CONCURRENCY", 10),
		MaxRetry:    getEnvAsInt("QUEUE_MAX_RETRY", 5),
	}
}
