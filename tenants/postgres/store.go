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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

// Store implements the tenant store contract over one PostgreSQL cluster
// with one schema per tenant. The context-switch primitive is search_path:
// entering a tenant points the session at that tenant's schema, leaving
// restores the previous one.
//
// All statements run on a single dedicated session because search_path is
// session state; the platform serves one request per execution unit, so
// one session is exactly what a request owns.
type Store struct {
	db           *sql.DB
	schemaPrefix string

	mu    sync.Mutex
	sess  *sql.Conn
	stack []string

	logger *log.Logger
}

var (
	_ tenants.Store         = (*Store)(nil)
	_ tenants.UserDirectory = (*Store)(nil)
)

var schemaIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// NewStore wraps a network cluster connection. schemaPrefix is prepended
// to tenant IDs to form schema names (e.g. prefix "tenant_" and tenant
// "blog-7" give schema "tenant_blog_7").
func NewStore(db *sql.DB, schemaPrefix string) *Store {
	return &Store{
		db:           db,
		schemaPrefix: schemaPrefix,
		logger:       log.New(log.Writer(), "[TenantStore] ", log.LstdFlags),
	}
}

// Open connects to the cluster with pool settings matching one session per
// request plus enumeration headroom.
func Open(dbURL, schemaPrefix string) (*Store, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant cluster connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping tenant cluster: %w", err)
	}

	return NewStore(db, schemaPrefix), nil
}

// DB exposes the underlying cluster pool so network-wide tables (options,
// component settings) can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// session returns the dedicated connection, acquiring it on first use
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

// schemaName derives the schema for a tenant. Tenant IDs arrive from the
// network table but still get validated: schema names cannot be
// parameterized, so nothing unvalidated may reach the SET statement.
func (s *Store) schemaName(tenant types.TenantID) (string, error) {
	id := strings.ToLower(tenant.String())
	if !schemaIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid tenant id %q", tenant)
	}
	return s.schemaPrefix + strings.ReplaceAll(id, "-", "_"), nil
}

// EnumerateTenants lists every tenant registered on the network
func (s *Store) EnumerateTenants(ctx context.Context) ([]types.TenantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := sess.QueryContext(ctx, `SELECT id FROM public.tenants ORDER BY id`)
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

// Enter points the session at the tenant's schema
func (s *Store) Enter(ctx context.Context, tenant types.TenantID) error {
	schema, err := s.schemaName(tenant)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "bad tenant id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "no session", err)
	}

	// A schema may vanish when a tenant is deleted mid-scan.
	var exists bool
	err = sess.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schema).Scan(&exists)
	if err != nil {
		return tenants.NewTenantError(tenant, "Enter", "schema lookup failed", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", tenants.ErrTenantUnavailable, tenant)
	}

	setPath := fmt.Sprintf("SET search_path TO %s, public", pq.QuoteIdentifier(schema))
	if _, err := sess.ExecContext(ctx, setPath); err != nil {
		return tenants.NewTenantError(tenant, "Enter", "failed to set search_path", err)
	}

	s.stack = append(s.stack, schema)
	return nil
}

// Leave restores the previously current tenant's schema
func (s *Store) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stack) == 0 {
		s.logger.Println("Leave called with no entered tenant")
		return
	}
	s.stack = s.stack[:len(s.stack)-1]

	restore := "SET search_path TO public"
	if n := len(s.stack); n > 0 {
		restore = fmt.Sprintf("SET search_path TO %s, public", pq.QuoteIdentifier(s.stack[n-1]))
	}

	if s.sess == nil {
		return
	}
	if _, err := s.sess.ExecContext(context.Background(), restore); err != nil {
		// A session that cannot restore its path is poisoned; drop it so
		// the next operation acquires a clean one pointed at public.
		s.logger.Printf("Failed to restore search_path: %v, discarding session", err)
		_ = s.sess.Close()
		s.sess = nil
	}
}

// ListPublishedPosts returns the current tenant's published posts, newest
// first. Bodies are not selected; the permalink is the payload reference.
func (s *Store) ListPublishedPosts(ctx context.Context, since time.Time) ([]tenants.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, author_id, title, permalink, published_at, tags
		FROM posts
		WHERE status = 'published'
	`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` AND published_at >= $1`
		args = append(args, since)
	}
	query += ` ORDER BY published_at DESC`

	rows, err := sess.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []tenants.Post
	for rows.Next() {
		var p tenants.Post
		var tags pq.StringArray
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Permalink, &p.Published, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Tags = tags
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
		`SELECT COUNT(*) FROM comments WHERE author_id = $1 AND approved = TRUE`,
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

	u := tenants.User{ID: id}
	err = sess.QueryRowContext(ctx,
		`SELECT login, display_name FROM public.users WHERE id = $1`,
		int64(id)).Scan(&u.Login, &u.DisplayName)
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
