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

package tenants

import (
	"context"
	"errors"
	"time"

	"classblogs/platform/shared/types"
)

// ErrTenantUnavailable signals that a tenant's store could not be made
// current (deleted concurrently, unreachable, archived). Recoverable: the
// aggregation engine skips the tenant and continues.
var ErrTenantUnavailable = errors.New("tenant unavailable")

// TenantError represents errors specific to tenant store operations
type TenantError struct {
	Tenant    types.TenantID
	Operation string
	Message   string
	Cause     error
}

func (e *TenantError) Error() string {
	if e.Cause != nil {
		return string(e.Tenant) + "." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return string(e.Tenant) + "." + e.Operation + ": " + e.Message
}

func (e *TenantError) Unwrap() error {
	return e.Cause
}

// NewTenantError creates a new TenantError
func NewTenantError(tenant types.TenantID, operation, message string, cause error) *TenantError {
	return &TenantError{
		Tenant:    tenant,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// Post is one published post as seen by the aggregation engine. Permalink
// is a payload reference; post bodies are never loaded network-wide, to
// bound memory on full scans.
type Post struct {
	ID        int64          `json:"id"`
	Tenant    types.TenantID `json:"tenant"`
	AuthorID  types.UserID   `json:"author_id"`
	Title     string         `json:"title"`
	Permalink string         `json:"permalink"`
	Published time.Time      `json:"published"`
	Tags      []string       `json:"tags,omitempty"`
}

// Store is the tenant platform contract the aggregation engine consumes.
//
// Enter makes the given tenant's data current for subsequent content
// queries; Leave restores whichever tenant was current before the matching
// Enter. Implementations must support nesting. Content queries always
// target the currently entered tenant.
type Store interface {
	// EnumerateTenants lists every tenant currently on the network. The
	// set may change between calls; order is unspecified but exhaustive.
	EnumerateTenants(ctx context.Context) ([]types.TenantID, error)

	// Enter makes tenant's store current. Returns ErrTenantUnavailable
	// (possibly wrapped) when the tenant cannot be made current.
	Enter(ctx context.Context, tenant types.TenantID) error

	// Leave restores the tenant that was current before the matching Enter.
	Leave()

	// ListPublishedPosts returns the current tenant's published posts.
	// A zero since means no lower bound.
	ListPublishedPosts(ctx context.Context, since time.Time) ([]Post, error)

	// CountApprovedComments counts the current tenant's approved comments
	// authored by the given network user.
	CountApprovedComments(ctx context.Context, author types.UserID) (int, error)
}

// User is one network-wide user identity.
type User struct {
	ID          types.UserID `json:"id"`
	Login       string       `json:"login"`
	DisplayName string       `json:"display_name"`
}

// UserDirectory resolves network-wide user identities. The same student
// posting on two blogs resolves to one User here.
type UserDirectory interface {
	LookupUser(ctx context.Context, id types.UserID) (User, bool, error)
}
