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

package options

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"classblogs/platform/shared/types"
)

// CurrentTenantFunc supplies the currently active tenant. Tenant-scoped
// reads and writes always implicitly target this tenant; network-scoped
// ones never do. The two bags must never be conflated.
type CurrentTenantFunc func() types.TenantID

// Store persists component options in the network database: one global
// network-wide bag and one bag per tenant. Reads go through a TTL cache.
type Store struct {
	db      *sql.DB
	current CurrentTenantFunc
	cache   *readCache
	logger  *log.Logger
}

// NewStore wraps an existing network database connection. The ttl bounds
// how stale a cached option read may be; zero or negative selects the
// default.
func NewStore(db *sql.DB, current CurrentTenantFunc, ttl time.Duration) *Store {
	return &Store{
		db:      db,
		current: current,
		cache:   newReadCache(ttl),
		logger:  log.New(log.Writer(), "[Options] ", log.LstdFlags),
	}
}

// InitSchema creates the option tables if they don't exist
func (s *Store) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS network_options (
		key VARCHAR(255) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tenant_options (
		tenant_id VARCHAR(255) NOT NULL,
		key VARCHAR(255) NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant_id, key)
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create option schema: %w", err)
	}
	return nil
}

// GetNetworkOption reads a network-wide option. Absence is a normal
// outcome, not an error.
func (s *Store) GetNetworkOption(ctx context.Context, key string) (string, bool, error) {
	cacheKey := "network/" + key
	if value, ok := s.cache.get(cacheKey); ok {
		return value, true, nil
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM network_options WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read network option %s: %w", key, err)
	}

	s.cache.set(cacheKey, value)
	return value, true, nil
}

// SetNetworkOption writes a network-wide option. Last writer wins at the
// granularity of one key.
func (s *Store) SetNetworkOption(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO network_options (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write network option %s: %w", key, err)
	}

	s.cache.set("network/"+key, value)
	return nil
}

// GetTenantOption reads an option scoped to the currently active tenant.
func (s *Store) GetTenantOption(ctx context.Context, key string) (string, bool, error) {
	tenant := s.current()
	cacheKey := "tenant/" + tenant.String() + "/" + key
	if value, ok := s.cache.get(cacheKey); ok {
		return value, true, nil
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM tenant_options WHERE tenant_id = $1 AND key = $2`,
		tenant.String(), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read tenant option %s/%s: %w", tenant, key, err)
	}

	s.cache.set(cacheKey, value)
	return value, true, nil
}

// SetTenantOption writes an option scoped to the currently active tenant.
func (s *Store) SetTenantOption(ctx context.Context, key, value string) error {
	tenant := s.current()
	query := `
		INSERT INTO tenant_options (tenant_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, tenant.String(), key, value); err != nil {
		return fmt.Errorf("failed to write tenant option %s/%s: %w", tenant, key, err)
	}

	s.cache.set("tenant/"+tenant.String()+"/"+key, value)
	return nil
}
