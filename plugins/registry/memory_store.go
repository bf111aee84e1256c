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
	"sync"
)

// MemoryDisabledStore keeps the disabled set in memory. Used on
// installations without a network database and in tests.
type MemoryDisabledStore struct {
	mu       sync.Mutex
	disabled map[string]bool
}

// NewMemoryDisabledStore creates a store with the given IDs pre-disabled
func NewMemoryDisabledStore(disabledIDs ...string) *MemoryDisabledStore {
	disabled := make(map[string]bool, len(disabledIDs))
	for _, id := range disabledIDs {
		disabled[id] = true
	}
	return &MemoryDisabledStore{disabled: disabled}
}

// LoadDisabled returns a copy of the disabled set
func (s *MemoryDisabledStore) LoadDisabled(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(s.disabled))
	for id := range s.disabled {
		out[id] = true
	}
	return out, nil
}

// SetDisabled updates one component's membership in the disabled set
func (s *MemoryDisabledStore) SetDisabled(ctx context.Context, componentID string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if disabled {
		s.disabled[componentID] = true
	} else {
		delete(s.disabled, componentID)
	}
	return nil
}
