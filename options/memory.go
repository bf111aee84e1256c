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
	"sync"

	"classblogs/platform/shared/types"
)

// MemoryStore is an in-memory option store. Used on installations without
// a network database and throughout the test suites.
type MemoryStore struct {
	mu      sync.RWMutex
	network map[string]string
	tenant  map[types.TenantID]map[string]string
	current CurrentTenantFunc
}

// NewMemoryStore creates an empty in-memory option store
func NewMemoryStore(current CurrentTenantFunc) *MemoryStore {
	return &MemoryStore{
		network: make(map[string]string),
		tenant:  make(map[types.TenantID]map[string]string),
		current: current,
	}
}

// GetNetworkOption reads a network-wide option
func (s *MemoryStore) GetNetworkOption(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.network[key]
	return v, ok, nil
}

// SetNetworkOption writes a network-wide option
func (s *MemoryStore) SetNetworkOption(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network[key] = value
	return nil
}

// GetTenantOption reads an option scoped to the current tenant
func (s *MemoryStore) GetTenantOption(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bag, ok := s.tenant[s.current()]
	if !ok {
		return "", false, nil
	}
	v, ok := bag[key]
	return v, ok, nil
}

// SetTenantOption writes an option scoped to the current tenant
func (s *MemoryStore) SetTenantOption(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant := s.current()
	if s.tenant[tenant] == nil {
		s.tenant[tenant] = make(map[string]string)
	}
	s.tenant[tenant][key] = value
	return nil
}
