// Package config loads application configuration from environment variables
// into tagged structs, caching each configuration type so it is parsed at
// most once per process.
//
// A default .env file is loaded lazily on first use; missing files are not
// an error. Each package owns its Config struct with `env` tags and the
// binary wires them together at startup:
//
//	type ServerConfig struct {
//	    Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
package config
