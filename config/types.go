package config

// Economics is the fee schedule and voting policy fixed at startup.
type Economics struct {
	ProtectionFee    uint64 `toml:"ProtectionFee" envconfig:"PROTECTION_FEE"`
	VoterReward      uint64 `toml:"VoterReward" envconfig:"VOTER_REWARD"`
	VotePrice        uint64 `toml:"VotePrice" envconfig:"VOTE_PRICE"`
	MinimumVotes     uint64 `toml:"MinimumVotes" envconfig:"MINIMUM_VOTES"`
	VotingPeriodSecs uint64 `toml:"VotingPeriodSecs" envconfig:"VOTING_PERIOD_SECS"`
	// WeiPerToken prices one XToken in wei.
	WeiPerToken uint64 `toml:"WeiPerToken" envconfig:"WEI_PER_TOKEN"`
	// Validators optionally restricts dispute voting to these bech32
	// addresses. Genesis validators take precedence when present.
	Validators []string `toml:"Validators" envconfig:"VALIDATORS"`
	// Resolver may trigger resolution before quorum or the deadline.
	Resolver string `toml:"Resolver" envconfig:"RESOLVER"`
}

// RPC controls the JSON-RPC listener.
type RPC struct {
	// JWTSecretEnv names the environment variable holding the HS256 secret.
	JWTSecretEnv      string   `toml:"JWTSecretEnv" envconfig:"JWT_SECRET_ENV"`
	RequestsPerMinute uint32   `toml:"RequestsPerMinute" envconfig:"REQUESTS_PER_MINUTE"`
	Burst             uint32   `toml:"Burst" envconfig:"BURST"`
	AllowedOrigins    []string `toml:"AllowedOrigins" envconfig:"ALLOWED_ORIGINS"`
	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies    []string `toml:"TrustedProxies" envconfig:"TRUSTED_PROXIES"`
	ReadHeaderTimeout uint32   `toml:"ReadHeaderTimeout" envconfig:"READ_HEADER_TIMEOUT"`
}

// Indexer configures the event log database.
type Indexer struct {
	// DSN is a sqlite file path or a postgres:// URL. Empty disables the
	// indexer.
	DSN       string `toml:"DSN" envconfig:"DSN"`
	ExportDir string `toml:"ExportDir" envconfig:"EXPORT_DIR"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" envconfig:"ENDPOINT"`
	Insecure bool   `toml:"Insecure" envconfig:"INSECURE"`
	Traces   bool   `toml:"Traces" envconfig:"TRACES"`
	Metrics  bool   `toml:"Metrics" envconfig:"METRICS"`
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS form: key=value,key2=value2.
	Headers  string `toml:"Headers" envconfig:"HEADERS"`
}
