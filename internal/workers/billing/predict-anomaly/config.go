// internal/workers/billing/predict-anomaly/config.go
package predictanomaly

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
