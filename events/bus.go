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

package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
)

// Kind identifies a class of content mutation on the network.
type Kind string

const (
	// PostPublished fires when a post transitions to published on any tenant
	PostPublished Kind = "post_published"
	// CommentApproved fires when a comment transitions to approved on any tenant
	CommentApproved Kind = "comment_approved"
	// TenantAdded fires when a new blog joins the network
	TenantAdded Kind = "tenant_added"
	// TenantRemoved fires when a blog leaves the network
	TenantRemoved Kind = "tenant_removed"
)

// Event is one content mutation notification.
type Event struct {
	ID     string         `json:"id"`
	Kind   Kind           `json:"kind"`
	Tenant types.TenantID `json:"tenant"`
	Author types.UserID   `json:"author,omitempty"`
	At     time.Time      `json:"at"`
}

// Handler receives events synchronously on the publisher's goroutine.
// The platform serves one request per execution unit, so handlers must be
// fast and must not block.
type Handler func(Event)

// Subscription binds a named handler to one or more event kinds. The name
// exists so wiring can be inspected and asserted on in tests.
type Subscription struct {
	Name    string
	Kinds   []Kind
	Handler Handler
}

// Bus is the process-wide mutation event bus. Delivery is synchronous and
// in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []Subscription
	logger *logger.Logger
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		logger: logger.New("events"),
	}
}

// Subscribe registers a subscription. The name is required; duplicate names
// are allowed (one component may subscribe to several kinds separately).
func (b *Bus) Subscribe(sub Subscription) error {
	if sub.Name == "" {
		return fmt.Errorf("subscription requires a name")
	}
	if sub.Handler == nil {
		return fmt.Errorf("subscription %q requires a handler", sub.Name)
	}
	if len(sub.Kinds) == 0 {
		return fmt.Errorf("subscription %q requires at least one event kind", sub.Name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return nil
}

// Publish delivers an event to every matching subscription. A zero ID or
// timestamp is filled in.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		for _, k := range sub.Kinds {
			if k == e.Kind {
				sub.Handler(e)
				delivered++
				break
			}
		}
	}

	b.logger.Debug(e.Tenant.String(), e.ID, "event published", map[string]interface{}{
		"kind":      string(e.Kind),
		"delivered": delivered,
	})
}

// Subscriptions returns a copy of the current wiring, for inspection.
func (b *Bus) Subscriptions() []Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Subscription, len(b.subs))
	copy(out, b.subs)
	return out
}
