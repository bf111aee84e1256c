// Copyright 2025 ClassBlogs
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the network daemon configuration from a YAML file
// with environment variable expansion, falling back to environment
// variables alone when no file is given.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"classblogs/platform/shared/types"
)

// File is the root structure of the configuration file
type File struct {
	Version     string             `yaml:"version"`
	Network     NetworkSection     `yaml:"network"`
	Database    DatabaseSection    `yaml:"database"`
	Redis       RedisSection       `yaml:"redis,omitempty"`
	Server      ServerSection      `yaml:"server"`
	Aggregation AggregationSection `yaml:"aggregation,omitempty"`
}

// NetworkSection describes the blog network topology
type NetworkSection struct {
	Mode       string `yaml:"mode"`        // "network" or "single"
	RootTenant string `yaml:"root_tenant"` // the main blog's tenant ID
}

// DatabaseSection selects and configures the tenant content store
type DatabaseSection struct {
	Driver       string `yaml:"driver"` // "postgres" or "mysql"
	URL          string `yaml:"url"`
	SchemaPrefix string `yaml:"schema_prefix,omitempty"` // postgres schema-per-tenant prefix
	DBPrefix     string `yaml:"db_prefix,omitempty"`     // mysql database-per-tenant prefix
	NetworkDB    string `yaml:"network_db,omitempty"`    // mysql shared-tables database
}

// RedisSection configures the optional aggregate snapshot mirror
type RedisSection struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ServerSection configures the admin HTTP API
type ServerSection struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// AggregationSection tunes the cross-tenant scan
type AggregationSection struct {
	ScanBudgetMs  int `yaml:"scan_budget_ms,omitempty"`
	MaxAgeMs      int `yaml:"max_age_ms,omitempty"`
	SnapshotTTLMs int `yaml:"snapshot_ttl_ms,omitempty"`
}

// Load reads and validates the configuration. With an empty path it builds
// the configuration from environment variables alone.
func Load(path string) (*File, error) {
	if path == "" {
		return fromEnv(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg File
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fromEnv builds a configuration purely from environment variables
func fromEnv() *File {
	cfg := &File{
		Version: "1.0",
		Network: NetworkSection{
			Mode:       getEnv("NETWORK_MODE", string(types.NetworkModeMulti)),
			RootTenant: getEnv("NETWORK_ROOT_TENANT", "main"),
		},
		Database: DatabaseSection{
			Driver:       getEnv("DATABASE_DRIVER", "postgres"),
			URL:          os.Getenv("DATABASE_URL"),
			SchemaPrefix: getEnv("DATABASE_SCHEMA_PREFIX", "blog_"),
			DBPrefix:     getEnv("DATABASE_DB_PREFIX", "blog_"),
			NetworkDB:    getEnv("DATABASE_NETWORK_DB", "classblogs"),
		},
		Redis: RedisSection{
			Enabled:  os.Getenv("REDIS_ADDR") != "",
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Server: ServerSection{
			Port:      getEnv("PORT", "8082"),
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *File) {
	if cfg.Network.Mode == "" {
		cfg.Network.Mode = string(types.NetworkModeMulti)
	}
	if cfg.Network.RootTenant == "" {
		cfg.Network.RootTenant = "main"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8082"
	}
	if cfg.Aggregation.ScanBudgetMs == 0 {
		cfg.Aggregation.ScanBudgetMs = 30000
	}
	if cfg.Aggregation.MaxAgeMs == 0 {
		cfg.Aggregation.MaxAgeMs = int(15 * time.Minute / time.Millisecond)
	}
	if cfg.Aggregation.SnapshotTTLMs == 0 {
		cfg.Aggregation.SnapshotTTLMs = cfg.Aggregation.MaxAgeMs
	}
}

// Validate checks the structure of a loaded configuration
func Validate(cfg *File) error {
	if cfg.Version == "" {
		return fmt.Errorf("config file must specify a version")
	}

	switch cfg.Network.Mode {
	case string(types.NetworkModeMulti), string(types.NetworkModeSingle):
	default:
		return fmt.Errorf("invalid network mode '%s'", cfg.Network.Mode)
	}

	switch cfg.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("invalid database driver '%s'", cfg.Database.Driver)
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	return nil
}

// NetworkConfig converts the network section to the shared runtime type
func (f *File) NetworkConfig() types.NetworkConfig {
	root := types.TenantID(f.Network.RootTenant)
	if f.Network.Mode == string(types.NetworkModeSingle) {
		return types.DefaultSingleConfig(root)
	}
	return types.DefaultNetworkConfig(root)
}

// ScanBudget returns the aggregation scan budget as a duration
func (f *File) ScanBudget() time.Duration {
	return time.Duration(f.Aggregation.ScanBudgetMs) * time.Millisecond
}

// MaxAge returns the aggregate freshness window as a duration
func (f *File) MaxAge() time.Duration {
	return time.Duration(f.Aggregation.MaxAgeMs) * time.Millisecond
}

// SnapshotTTL returns the snapshot mirror TTL as a duration
func (f *File) SnapshotTTL() time.Duration {
	return time.Duration(f.Aggregation.SnapshotTTLMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string.
// Supports ${VAR_NAME}, $VAR_NAME, and ${VAR_NAME:-default} syntax.
// Undefined variables without a default become empty strings.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultVal
	})
}

// GenerateExampleConfigFile generates an example configuration file
func GenerateExampleConfigFile() string {
	return `# ClassBlogs Network Configuration
# Environment variables can be referenced using ${VAR_NAME} or ${VAR_NAME:-default} syntax

version: "1.0"

network:
  mode: network          # "network" for a multi-blog network, "single" for one blog
  root_tenant: main      # the main blog every aggregate falls back to

database:
  driver: postgres       # "postgres" (schema per blog) or "mysql" (database per blog)
  url: ${DATABASE_URL}
  schema_prefix: blog_   # postgres: blog schemas are named <prefix><tenant>
  # db_prefix: blog_     # mysql: blog databases are named <prefix><tenant>
  # network_db: classblogs

redis:
  enabled: false         # aggregate snapshot mirror, optional
  addr: ${REDIS_ADDR:-localhost:6379}
  password: ${REDIS_PASSWORD}

server:
  port: ${PORT:-8082}
  jwt_secret: ${JWT_SECRET}

aggregation:
  scan_budget_ms: 30000  # wall-clock budget before a scan turns provisional
  max_age_ms: 900000     # cached aggregate freshness window
`
}
