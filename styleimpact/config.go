package styleimpact

import (
	"github.com/hazyhaar/styleimpact/styleimpact/internal/config"
)

// Config is the top-level styleimpact configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// Job defines one measurement: a page (URL or inline HTML), the sources to
// flip and the diff options.
type Job = config.JobConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// HTTPConfig controls the HTTP/MCP listener.
type HTTPConfig = config.HTTPConfig

// JobSchema is the SQLite schema of the impact_jobs table.
const JobSchema = config.Schema

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadJobs reads the active jobs of an impact_jobs table.
var LoadJobs = config.LoadJobs

// SaveJob upserts a job into an impact_jobs table.
var SaveJob = config.SaveJob
