package api

// Version information, set at build time via ldflags.
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// CommandsResponse lists the command types the gate accepts.
type CommandsResponse struct {
	Commands      []string `json:"commands"`
	EngineVersion string   `json:"engine_version"`
}

// ConfigResponse reports the config tables version being served.
type ConfigResponse struct {
	Version uint64 `json:"version"`
}

// HealthStatus is the overall health of the process.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse is the /health body.
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	Checks        map[string]HealthCheck `json:"checks"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck is one component's health.
type HealthCheck struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"`
}
