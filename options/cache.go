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
	"sync"
	"time"
)

const defaultReadTTL = 30 * time.Second

// cacheEntry holds one cached option value with expiration
type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// readCache is a thread-safe TTL cache for option reads. Writes through the
// Store refresh the relevant key immediately, so the TTL only bounds
// staleness against writes from other processes.
type readCache struct {
	entries map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

func newReadCache(ttl time.Duration) *readCache {
	if ttl <= 0 {
		ttl = defaultReadTTL
	}
	return &readCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func (c *readCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.isExpired() {
		return "", false
	}
	return entry.value, true
}

func (c *readCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// cleanup removes expired entries and returns how many were evicted
func (c *readCache) cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if entry.isExpired() {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
