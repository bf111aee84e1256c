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

package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const snapshotKeyPrefix = "classblogs:aggregate:"

// SnapshotStore mirrors last-good aggregates in Redis so that multiple web
// workers share one computed result instead of each rescanning the network
// after a restart. Only final (non-provisional) results are mirrored.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore wraps a Redis client. The ttl should match or exceed
// the cache max age; a non-positive ttl selects DefaultMaxAge.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultMaxAge
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

// Save stores one aggregate under its cache key
func (s *SnapshotStore) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	if err := s.client.Set(ctx, snapshotKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return nil
}

// Load reads one aggregate into out. Returns false with no error when the
// key is absent.
func (s *SnapshotStore) Load(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := s.client.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return true, nil
}

// Invalidate removes one mirrored aggregate
func (s *SnapshotStore) Invalidate(ctx context.Context, key string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+key).Err()
}
