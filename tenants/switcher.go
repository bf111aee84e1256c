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
	"fmt"
	"sync"

	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
)

// Switcher wraps a Store's Enter/Leave with scoped guards so a leave runs
// on every exit path. There is exactly one current tenant per process;
// visits must be strictly sequential.
type Switcher struct {
	store  Store
	noop   bool
	home   types.TenantID
	mu     sync.Mutex
	stack  []types.TenantID
	logger *logger.Logger
}

// NewSwitcher creates a Switcher over the given store. On single-site
// installations enter and leave are no-ops: the one local tenant is always
// current.
func NewSwitcher(store Store, cfg types.NetworkConfig) *Switcher {
	return &Switcher{
		store:  store,
		noop:   !cfg.IsNetwork(),
		home:   cfg.RootTenant,
		logger: logger.New("tenants"),
	}
}

// Guard scopes one tenant context entry. Leave is idempotent, so it is safe
// to both defer it and call it early.
type Guard struct {
	sw       *Switcher
	tenant   types.TenantID
	noop     bool
	released bool
	mu       sync.Mutex
}

// Enter makes tenant current and returns a guard whose Leave restores the
// previously current tenant. Callers must pair every Enter with a Leave,
// including on error paths:
//
//	guard, err := sw.Enter(ctx, id)
//	if err != nil { ... }
//	defer guard.Leave()
func (s *Switcher) Enter(ctx context.Context, tenant types.TenantID) (*Guard, error) {
	if s.noop {
		return &Guard{noop: true}, nil
	}

	if err := s.store.Enter(ctx, tenant); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTenantUnavailable, tenant, err)
	}

	s.mu.Lock()
	s.stack = append(s.stack, tenant)
	s.mu.Unlock()

	return &Guard{sw: s, tenant: tenant}, nil
}

// Leave restores the tenant that was current before the matching Enter.
// Calling Leave more than once is a no-op.
func (g *Guard) Leave() {
	if g.noop {
		return
	}

	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.mu.Unlock()

	s := g.sw
	s.mu.Lock()
	if n := len(s.stack); n == 0 || s.stack[n-1] != g.tenant {
		// Guards released out of order would leave the store pointing at
		// the wrong tenant for every caller further up the stack.
		s.logger.Error(g.tenant.String(), "", "tenant guard released out of order", map[string]interface{}{
			"depth": len(s.stack),
		})
	} else {
		s.stack = s.stack[:n-1]
	}
	s.mu.Unlock()

	s.store.Leave()
}

// Tenant returns the tenant this guard entered.
func (g *Guard) Tenant() types.TenantID {
	return g.tenant
}

// Depth reports how many nested contexts are currently entered. Zero means
// the process is at its home tenant.
func (s *Switcher) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// Current returns the tenant whose store is active right now: the most
// recently entered tenant, or the home tenant when no context is entered.
// Tenant-scoped option reads and writes implicitly target this tenant.
func (s *Switcher) Current() types.TenantID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.stack); n > 0 {
		return s.stack[n-1]
	}
	return s.home
}
