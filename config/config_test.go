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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classblogs/platform/shared/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
network:
  mode: network
  root_tenant: main
database:
  driver: postgres
  url: postgres://localhost/classblogs
  schema_prefix: blog_
redis:
  enabled: true
  addr: localhost:6379
server:
  port: "9000"
  jwt_secret: sekrit
aggregation:
  scan_budget_ms: 5000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "network", cfg.Network.Mode)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.ScanBudget())
	assert.Equal(t, 15*time.Minute, cfg.MaxAge())
	assert.Equal(t, cfg.MaxAge(), cfg.SnapshotTTL())
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://db.internal/classblogs")
	path := writeConfig(t, `
version: "1.0"
database:
  driver: postgres
  url: ${TEST_DB_URL}
server:
  port: ${TEST_MISSING_PORT:-8082}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.internal/classblogs", cfg.Database.URL)
	assert.Equal(t, "8082", cfg.Server.Port)
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
network:
  mode: cluster
database:
  driver: postgres
  url: postgres://localhost/classblogs
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid network mode")
}

func TestLoadRejectsBadDriver(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
database:
  driver: sqlite
  url: file:blog.db
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database driver")
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
database:
  driver: postgres
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("NETWORK_MODE", "single")
	t.Setenv("DATABASE_URL", "postgres://localhost/solo")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "single", cfg.Network.Mode)
	assert.Equal(t, "postgres://localhost/solo", cfg.Database.URL)
	assert.False(t, cfg.NetworkConfig().IsNetwork())
}

func TestNetworkConfigConversion(t *testing.T) {
	cfg := &File{Network: NetworkSection{Mode: "network", RootTenant: "hub"}}
	nc := cfg.NetworkConfig()
	assert.True(t, nc.IsNetwork())
	assert.Equal(t, types.TenantID("hub"), nc.RootTenant)
}

func TestExampleConfigParses(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/classblogs")
	path := writeConfig(t, GenerateExampleConfigFile())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "blog_", cfg.Database.SchemaPrefix)
}
