package main

import (
	"flag"
	"log"
	"os"
	"strconv"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr           string
	ConfigFile     string
	RateConversion float64
	StoreDir       string
	LogLevel       string
	Seed           int64
	WebhookURL     string
	WebhookToken   string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment
// variables. Flags win over environment variables, which win over defaults.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "MCREACT_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "config-file",
			envVarName:  "MCREACT_CONFIG",
			defaultVal:  "reactions.cfg",
			description: "path to the reaction configuration file",
			setter:      func(c *ServerConfig, v string) { c.ConfigFile = v },
		},
		{
			flagName:    "rate-conv",
			envVarName:  "MCREACT_RATE_CONV",
			defaultVal:  "1e6",
			description: "rate-constant conversion factor (1e6 converts s⁻¹ to µs⁻¹)",
			setter: func(c *ServerConfig, v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
					c.RateConversion = f
				} else {
					log.Printf("Invalid value for rate-conv: %s, using default 1e6", v)
					c.RateConversion = 1e6
				}
			},
		},
		{
			flagName:    "store-dir",
			envVarName:  "MCREACT_STORE_DIR",
			defaultVal:  "./data",
			description: "directory where the run store database lives",
			setter:      func(c *ServerConfig, v string) { c.StoreDir = v },
		},
		{
			flagName:    "log-level",
			envVarName:  "MCREACT_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
		{
			flagName:    "webhook-url",
			envVarName:  "MCREACT_WEBHOOK_URL",
			defaultVal:  "",
			description: "optional endpoint to POST fire events to; empty disables webhook delivery",
			setter:      func(c *ServerConfig, v string) { c.WebhookURL = v },
		},
		{
			flagName:    "webhook-token",
			envVarName:  "MCREACT_WEBHOOK_TOKEN",
			defaultVal:  "",
			description: "optional bearer token sent with webhook deliveries",
			setter:      func(c *ServerConfig, v string) { c.WebhookToken = v },
		},
		{
			flagName:    "seed",
			envVarName:  "MCREACT_SEED",
			defaultVal:  "",
			description: "PRNG seed for new runs; empty uses a time-based seed",
			setter: func(c *ServerConfig, v string) {
				if v == "" {
					return
				}
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					c.Seed = n
				} else {
					log.Printf("Invalid value for seed: %s, ignoring", v)
				}
			},
		},
	}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}
	flag.Parse()

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}
