package docker

import (
	"time"
)

// Config holds the configuration for sandboxed conversion.
type Config struct {
	// Image is a Docker image that ships the wkhtmltopdf binary.
	Image string
	// Binary is the converter executable inside the image.
	Binary string
	// StorageDir is the host card directory, mounted read-only at CardsMount.
	StorageDir string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the maximum amount of time a conversion can take.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
}

// CardsMount is where StorageDir appears inside the sandbox.
const CardsMount = "/cards"

// DefaultConfig provides sensible defaults for a conversion sandbox.
func DefaultConfig() Config {
	return Config{
		Image:       "surnet/alpine-wkhtmltopdf:3.20.2-0.12.6-full",
		Binary:      "wkhtmltopdf",
		StorageDir:  "storage",
		MemoryLimit: 256 * 1024 * 1024,
		CPULimit:    1,
		Timeout:     60 * time.Second,
		PoolSize:    2,
	}
}
