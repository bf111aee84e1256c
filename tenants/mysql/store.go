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

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

// Store implements the tenant store contract over a MySQL server with one
// database per tenant, the layout classic blog farms use. The context
// switch primitive is USE: entering a tenant selects its database on the
// dedicated session, leaving selects the previous one.
type Store struct {
	db        *sql.DB
	dbPrefix  string
	networkDB string

	mu    sync.Mutex
	sess  *sql.Conn
	stack []string

	logger *log.Logger
}

var (
	_ tenants.Store         = (*Store)(nil)
	_ tenants.UserDirectory = (*Store)(nil)
)

var dbIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// NewStore wraps a server connection. dbPrefix forms per-tenant database
// names; networkDB holds the shared tenants and users tables.
func NewStore(db *sql.DB, dbPrefix, networkDB string) *Store {
	return &Store{
		db:        db,
		dbPrefix:  dbPrefix,
		networkDB: networkDB,
		logger:    log.New(log.Writer(), "[TenantStore] ", log.LstdFlags),
	}
}

// Open connects to the MySQL server
func Open(dsn, dbPrefix, networkDB string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant server connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping tenant server: %w", err)
	}

	return NewStore(db, dbPrefix, networkDB), nil
}

// DB exposes the underlying server pool so network-wide tables (options,
// component settings) can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) session(ctx context.Context) (*sql.Conn, error) {
	if s.sess != nil {
		return s.sess, nil
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	s.sess = conn
	return conn, nil
}

// databaseName derives and validates the database for a tenant. Database
// names cannot be parameterized, so the ID is validated before it can
// reach a USE statement.
func (s *Store) databaseName(tenant types.TenantID) (string, error) {
	id := strings.ToLower(tenant.String())
	if !dbIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid tenant id %q", tenant)
	}
	return s.dbPrefix + strings.ReplaceAll(id, "-", "_"), nil
}

// EnumerateTenants lists every tenant registered on the network
func (s *Store) EnumerateTenants(ctx context.Context) ([]types.TenantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id FROM `%s`.tenants ORDER BY id", s.networkDB)
	rows, err := sess.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tenants: %w", err)
	}
	defer rows.Close()

	var ids []types.TenantID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, types.TenantID(id))
	}
	return ids, rows.Err()
}

// Enter selects the tenant's database on the session
func (s *Store) Enter(ctx context.Context, tenant types.TenantID) error {
	dbName, err := s.databaseName(tenant)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "bad tenant id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "no session", err)
	}

	var exists bool
	err = sess.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = ?)`,
		dbName).Scan(&exists)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "database lookup failed", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", tenants.ErrTenantUnavailable, tenant)
	}

	if _, err := sess.ExecContext(ctx, fmt.Sprintf("USE `%s`", dbName)); err != nil {
		return tenants.NewTenantError(tenant, "Enter", "failed to select database", err)
	}

	s.stack = append(s.stack, dbName)
	return nil
}

// Leave selects the previously current tenant's database
func (s *Store) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) == 0 {
		s.logger.Println("Leave called with no entered tenant")
		return
	}
	s.stack = s.stack[:len(s.stack)-1]

	restore := s.networkDB
	if n := len(s.stack); n > 0 {
		restore = s.stack[n-1]
	}

	if s.sess == nil {
		return
	}
	if _, err := s.sess.ExecContext(context.Background(), fmt.Sprintf("USE `%s`", restore)); err != nil {
		s.logger.Printf("Failed to restore database: %v, discarding session", err)
		_ = s.sess.Close()
		s.sess = nil
	}
}

// ListPublishedPosts returns the current tenant's published posts, newest
// first. Tags come back comma-joined from the tag join table.
func (s *Store) ListPublishedPosts(ctx context.Context, since time.Time) ([]tenants.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT p.id, p.author_id, p.title, p.permalink, p.published_at,
		       COALESCE(GROUP_CONCAT(t.name SEPARATOR ','), '')
		FROM posts p
		LEFT JOIN post_tags pt ON pt.post_id = p.id
		LEFT JOIN tags t ON t.id = pt.tag_id
		WHERE p.status = 'published'
	`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` AND p.published_at >= ?`
		args = append(args, since)
	}
	query += `
		GROUP BY p.id, p.author_id, p.title, p.permalink, p.published_at
		ORDER BY p.published_at DESC
	`

	rows, err := sess.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []tenants.Post
	for rows.Next() {
		var p tenants.Post
		var tagList string
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Permalink, &p.Published, &tagList); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if tagList != "" {
			p.Tags = strings.Split(tagList, ",")
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountApprovedComments counts the current tenant's approved comments by
// one network user.
func (s *Store) CountApprovedComments(ctx context.Context, author types.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = sess.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE author_id = ? AND approved = 1`,
		int64(author)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

// LookupUser resolves a network-wide user from the shared users table
func (s *Store) LookupUser(ctx context.Context, id types.UserID) (tenants.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return tenants.User{}, false, err
	}

	query := fmt.Sprintf("SELECT login, display_name FROM `%s`.users WHERE id = ?", s.networkDB)
	u := tenants.User{ID: id}
	err = sess.QueryRowContext(ctx, query, int64(id)).Scan(&u.Login, &u.DisplayName)
	if err == sql.ErrNoRows {
		return tenants.User{}, false, nil
	}
	if err != nil {
		return tenants.User{}, false, fmt.Errorf("failed to look up user %d: %w", id, err)
	}
	return u, true, nil
}

// Close releases the session and the pool
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		_ = s.sess.Close()
		s.sess = nil
	}
	return s.db.Close()
}
