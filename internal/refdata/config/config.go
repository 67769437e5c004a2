package config

type Config struct {
	ServiceAddr string
}
