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

package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgreSQLStorage persists the disabled set in the network-wide database.
// The set is network-wide state, never per-tenant: a disabled component is
// disabled for every blog on the network.
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgreSQLStorage connects to the network database and ensures the
// component_settings table exists. Connection is retried with backoff to
// ride out container DNS initialization.
func NewPostgreSQLStorage(dbURL string) (*PostgreSQLStorage, error) {
	maxRetries := 5
	var db *sql.DB
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt*2) * time.Second
			log.Printf("[ComponentStorage] Database connection failed (attempt %d/%d): %v, retrying in %v",
				attempt, maxRetries, err, backoff)
			time.Sleep(backoff)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	storage := &PostgreSQLStorage{
		db:     db,
		logger: log.New(log.Writer(), "[ComponentStorage] ", log.LstdFlags),
	}

	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	storage.logger.Println("PostgreSQL component storage initialized")
	return storage, nil
}

// NewPostgreSQLStorageWithDB wraps an existing connection. Used by tests
// and by deployments that share one network database pool.
func NewPostgreSQLStorageWithDB(db *sql.DB) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		db:     db,
		logger: log.New(log.Writer(), "[ComponentStorage] ", log.LstdFlags),
	}
}

// InitSchema creates the component_settings table if it doesn't exist.
// Callers of NewPostgreSQLStorageWithDB run this themselves.
func (s *PostgreSQLStorage) InitSchema() error {
	return s.initSchema()
}

// initSchema creates the component_settings table if it doesn't exist
func (s *PostgreSQLStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS component_settings (
		component_id VARCHAR(255) PRIMARY KEY,
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// LoadDisabled returns the set of component IDs currently disabled
func (s *PostgreSQLStorage) LoadDisabled(ctx context.Context) (map[string]bool, error) {
	query := `SELECT component_id FROM component_settings WHERE disabled = TRUE`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load disabled set: %w", err)
	}
	defer rows.Close()

	disabled := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan component id: %w", err)
		}
		disabled[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disabled set: %w", err)
	}

	return disabled, nil
}

// SetDisabled upserts one component's disabled flag. Last writer wins at
// the granularity of one component ID.
func (s *PostgreSQLStorage) SetDisabled(ctx context.Context, componentID string, disabled bool) error {
	query := `
		INSERT INTO component_settings (component_id, disabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (component_id) DO UPDATE SET
			disabled = EXCLUDED.disabled,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, componentID, disabled)
	if err != nil {
		return fmt.Errorf("failed to persist disabled flag for %s: %w", componentID, err)
	}

	s.logger.Printf("Component %s disabled=%v", componentID, disabled)
	return nil
}

// Close releases the underlying connection pool
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
