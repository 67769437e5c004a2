package config

import "time"

type Config struct {
	SessionTTL time.Duration
}
