package config

import "testing"

func baseConfig() *Config {
	return &Config{
		BrokerMaxClients:   1,
		QueueCapacity:      1,
		DispatcherWorkers:  1,
		CPURejectThreshold: 75,
		CPUPauseThreshold:  80,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max clients", func(c *Config) { c.BrokerMaxClients = 0 }},
		{"zero queue capacity", func(c *Config) { c.QueueCapacity = 0 }},
		{"zero dispatcher workers", func(c *Config) { c.DispatcherWorkers = 0 }},
		{"cpu reject threshold above 100", func(c *Config) { c.CPURejectThreshold = 101 }},
		{"cpu pause threshold below 0", func(c *Config) { c.CPUPauseThreshold = -1 }},
		{"pause below reject", func(c *Config) { c.CPUPauseThreshold = 50; c.CPURejectThreshold = 75 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s, got nil", tc.name)
			}
		})
	}
}
