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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_Validation(t *testing.T) {
	bus := NewBus()

	err := bus.Subscribe(Subscription{Kinds: []Kind{PostPublished}, Handler: func(Event) {}})
	assert.Error(t, err, "unnamed subscription must be rejected")

	err = bus.Subscribe(Subscription{Name: "x", Kinds: []Kind{PostPublished}})
	assert.Error(t, err, "handler-less subscription must be rejected")

	err = bus.Subscribe(Subscription{Name: "x", Handler: func(Event) {}})
	assert.Error(t, err, "kind-less subscription must be rejected")
}

func TestPublish_DeliversToMatchingKinds(t *testing.T) {
	bus := NewBus()

	var posts, comments int
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "post-watcher",
		Kinds:   []Kind{PostPublished},
		Handler: func(Event) { posts++ },
	}))
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "comment-watcher",
		Kinds:   []Kind{CommentApproved},
		Handler: func(Event) { comments++ },
	}))

	bus.Publish(Event{Kind: PostPublished, Tenant: "blog-1"})
	bus.Publish(Event{Kind: PostPublished, Tenant: "blog-2"})
	bus.Publish(Event{Kind: CommentApproved, Tenant: "blog-1"})

	assert.Equal(t, 2, posts)
	assert.Equal(t, 1, comments)
}

func TestPublish_FillsIDAndTimestamp(t *testing.T) {
	bus := NewBus()

	var got Event
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "capture",
		Kinds:   []Kind{TenantAdded},
		Handler: func(e Event) { got = e },
	}))

	bus.Publish(Event{Kind: TenantAdded, Tenant: "blog-9"})

	assert.NotEmpty(t, got.ID)
	assert.False(t, got.At.IsZero())
}

func TestPublish_MultiKindSubscriptionDeliversOnce(t *testing.T) {
	bus := NewBus()

	var calls int
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "tenant-set-watcher",
		Kinds:   []Kind{TenantAdded, TenantRemoved},
		Handler: func(Event) { calls++ },
	}))

	bus.Publish(Event{Kind: TenantAdded, Tenant: "blog-1"})
	assert.Equal(t, 1, calls, "a multi-kind subscription gets one delivery per event")
}

func TestSubscriptions_Inspectable(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "cache-invalidation",
		Kinds:   []Kind{PostPublished, CommentApproved},
		Handler: func(Event) {},
	}))

	subs := bus.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "cache-invalidation", subs[0].Name)
	assert.ElementsMatch(t, []Kind{PostPublished, CommentApproved}, subs[0].Kinds)
}
