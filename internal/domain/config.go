package domain

// KeyPrefix is the default namespace prefix for all Redis keys.
const KeyPrefix = "paperqa:"

// VectorConfig holds embedding dimensionality settings.
type VectorConfig struct {
	Dimensions int
}

// DefaultVectorConfig returns defaults for OpenAI text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Dimensions: 1536}
}
