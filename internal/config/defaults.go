package config

const (
	defaultStateDir             = "~/.local/share/whorl"
	defaultLogDir               = "~/.local/share/whorl/logs"
	defaultBind                 = "127.0.0.1:9476"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTokenMaxAgeDays      = 365
	defaultFuzzyScanLimit       = 1000
	defaultStableScanLimit      = 500
	defaultFuzzyThreshold       = 8
	defaultStableFuzzyThreshold = 4
	defaultGPUScoreMin          = 0.1
	defaultTrustWindowDays      = 7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:           defaultBind,
			TrustedProxies: true,
		},
		Identity: Identity{
			TokenMaxAgeDays: defaultTokenMaxAgeDays,
		},
		Matching: Matching{
			FuzzyScanLimit:       defaultFuzzyScanLimit,
			StableScanLimit:      defaultStableScanLimit,
			FuzzyThreshold:       defaultFuzzyThreshold,
			StableFuzzyThreshold: defaultStableFuzzyThreshold,
			GPUScoreMin:          defaultGPUScoreMin,
		},
		Trust: Trust{
			WindowDays: defaultTrustWindowDays,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
