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
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"classblogs/platform/events"
	"classblogs/platform/plugins/base"
	"classblogs/platform/shared/logger"
)

var (
	// ErrDuplicateID is fatal at registration time: two components
	// colliding silently would corrupt the unique-ID invariant.
	ErrDuplicateID = errors.New("component id already registered")

	// ErrMissingID is fatal at registration time.
	ErrMissingID = errors.New("component id required")
)

// DisabledStore persists the network-wide set of administratively disabled
// component IDs. Membership is checked before a component's factory runs,
// so a disabled component never registers its hooks.
type DisabledStore interface {
	LoadDisabled(ctx context.Context) (map[string]bool, error)
	SetDisabled(ctx context.Context, componentID string, disabled bool) error
}

// Record describes one registered component.
//
// Enabled reflects the persisted administrative state; Active reflects
// whether a singleton exists in this process. The two differ between an
// enable/disable call and the next process start.
type Record struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	CanDisable  bool   `json:"can_disable"`
	Enabled     bool   `json:"enabled"`
	Active      bool   `json:"active"`
}

type entry struct {
	record   Record
	instance base.Component // nil when the component was disabled at startup
}

// Registry is the process-wide catalog of optional components. Constructed
// once at suite initialization and passed explicitly to everything that
// needs it; there is no ambient global lookup.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	disabled map[string]bool
	store    DisabledStore
	env      *base.Env
	logger   *logger.Logger
}

// New creates a Registry, loading the persisted disabled set so that
// membership can be checked before any factory runs.
func New(ctx context.Context, env *base.Env, store DisabledStore) (*Registry, error) {
	disabled, err := store.LoadDisabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load disabled set: %w", err)
	}

	return &Registry{
		entries:  make(map[string]*entry),
		disabled: disabled,
		store:    store,
		env:      env,
		logger:   logger.New("registry"),
	}, nil
}

// RegisterOption customizes a component record at registration time
type RegisterOption func(*Record)

// WithDisplayName sets the record's display name. Defaults to the ID.
func WithDisplayName(name string) RegisterOption {
	return func(r *Record) { r.DisplayName = name }
}

// WithDescription sets the record's description
func WithDescription(desc string) RegisterOption {
	return func(r *Record) { r.Description = desc }
}

// Required marks the component as not administratively disableable
func Required() RegisterOption {
	return func(r *Record) { r.CanDisable = false }
}

// Register adds a component under a unique ID. If the ID is not in the
// disabled set the factory is invoked exactly once and its singleton
// stored; otherwise no instance is created, which is what keeps a disabled
// component's hooks from ever firing.
//
// ErrMissingID and ErrDuplicateID are fatal: suite initialization must not
// continue past either.
func (r *Registry) Register(ctx context.Context, id string, factory base.Factory, opts ...RegisterOption) error {
	if id == "" {
		return ErrMissingID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	record := Record{
		ID:          id,
		DisplayName: id,
		CanDisable:  true,
	}
	for _, opt := range opts {
		opt(&record)
	}
	record.Enabled = !r.disabled[id]

	e := &entry{record: record}

	if record.Enabled {
		instance, err := factory(r.env)
		if err != nil {
			return base.NewComponentError(id, "Register", "factory failed", err)
		}
		if instance == nil {
			return base.NewComponentError(id, "Register", "factory returned no instance", nil)
		}
		e.instance = instance
		e.record.Active = true

		if err := r.seedDefaults(ctx, instance); err != nil {
			// Missing defaults degrade a component, they do not break the
			// suite. Components must tolerate absent options anyway.
			r.logger.WarnWithError("", "", "failed to seed component defaults", err, map[string]interface{}{
				"component": id,
			})
		}
	}

	r.entries[id] = e

	r.logger.Info("", "", "component registered", map[string]interface{}{
		"component": id,
		"enabled":   record.Enabled,
	})

	return nil
}

// seedDefaults writes a Configurable component's default options for keys
// that have no persisted value yet. Tenant defaults go to whichever tenant
// is active at registration time, which during suite initialization is the
// network's home tenant. Existing values are never overwritten.
func (r *Registry) seedDefaults(ctx context.Context, instance base.Component) error {
	configurable, ok := instance.(base.Configurable)
	if !ok {
		return nil
	}

	for key, value := range configurable.DefaultNetworkOptions() {
		_, exists, err := r.env.Options.GetNetworkOption(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := r.env.Options.SetNetworkOption(ctx, key, value); err != nil {
			return err
		}
	}

	for key, value := range configurable.DefaultTenantOptions() {
		_, exists, err := r.env.Options.GetTenantOption(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := r.env.Options.SetTenantOption(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the component singleton, or false if the ID is unknown or
// the component is disabled. Absence is a normal outcome, not an error.
func (r *Registry) Get(id string) (base.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[id]
	if !exists || e.instance == nil {
		return nil, false
	}
	return e.instance, true
}

// ListAll returns every registered component record, sorted ascending,
// case-insensitively, by display name.
func (r *Registry) ListAll() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(Record) bool { return true })
}

// ListEnabled returns records whose persisted state is enabled, sorted like
// ListAll.
func (r *Registry) ListEnabled() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(rec Record) bool { return rec.Enabled })
}

// ListUserControllable returns records an administrator may toggle, sorted
// like ListAll.
func (r *Registry) ListUserControllable() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(rec Record) bool { return rec.CanDisable })
}

func (r *Registry) listLocked(keep func(Record) bool) []Record {
	out := make([]Record, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e.record) {
			out = append(out, e.record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a := strings.ToLower(out[i].DisplayName)
		b := strings.ToLower(out[j].DisplayName)
		if a == b {
			return out[i].ID < out[j].ID
		}
		return a < b
	})
	return out
}

// Enable removes a component from the persisted disabled set. Takes effect
// at the next process start: the singleton and its hooks are only created
// during suite initialization. Enabling an already-enabled component is a
// no-op.
func (r *Registry) Enable(ctx context.Context, id string) error {
	return r.setDisabled(ctx, id, false)
}

// Disable adds a component to the persisted disabled set. Takes effect at
// the next process start; the current process keeps its already-registered
// hooks. Disabling an already-disabled component is a no-op.
func (r *Registry) Disable(ctx context.Context, id string) error {
	r.mu.RLock()
	e, exists := r.entries[id]
	r.mu.RUnlock()
	if exists && !e.record.CanDisable {
		return base.NewComponentError(id, "Disable", "component is not user-controllable", nil)
	}
	return r.setDisabled(ctx, id, true)
}

func (r *Registry) setDisabled(ctx context.Context, id string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return base.NewComponentError(id, "Toggle", "unknown component", nil)
	}

	if r.disabled[id] == disabled {
		return nil
	}

	if err := r.store.SetDisabled(ctx, id, disabled); err != nil {
		return base.NewComponentError(id, "Toggle", "failed to persist state", err)
	}

	if disabled {
		r.disabled[id] = true
	} else {
		delete(r.disabled, id)
	}
	e.record.Enabled = !disabled

	r.logger.Info("", "", "component toggled", map[string]interface{}{
		"component": id,
		"enabled":   !disabled,
		"effective": "next process start",
	})

	return nil
}

// WireSubscriptions registers the event subscriptions of every active
// component implementing Subscriber. Performed as an explicit step after
// construction so hook wiring is inspectable rather than hidden inside
// factories.
func (r *Registry) WireSubscriptions(bus *events.Bus) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, e := range r.entries {
		sub, ok := e.instance.(base.Subscriber)
		if !ok {
			continue
		}
		for _, s := range sub.Subscriptions() {
			if err := bus.Subscribe(s); err != nil {
				return base.NewComponentError(id, "WireSubscriptions", "invalid subscription", err)
			}
		}
	}
	return nil
}

// AdminPages collects the settings pages of active components, sorted by
// title for a stable menu order.
func (r *Registry) AdminPages() []base.AdminPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pages := make([]base.AdminPage, 0)
	for _, e := range r.entries {
		provider, ok := e.instance.(base.AdminPageProvider)
		if !ok {
			continue
		}
		pages = append(pages, provider.AdminPage())
	}
	sort.Slice(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Title) < strings.ToLower(pages[j].Title)
	})
	return pages
}

// Count returns the number of registered components
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
