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

package base

import (
	"context"
	"net/http"

	"classblogs/platform/events"
	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
)

// Component is the interface every registered add-on implements.
// Capabilities beyond identity are optional extensions: a component that
// persists options implements Configurable, one that contributes a settings
// page implements AdminPageProvider, one that reacts to content mutations
// implements Subscriber.
type Component interface {
	// ID returns the unique component identifier. Immutable for the life
	// of the process.
	ID() string
}

// OptionStore is the persisted configuration surface handed to components.
// Network options are global; tenant options implicitly target whichever
// tenant is currently active. The two bags are independent and must never
// be conflated.
type OptionStore interface {
	GetNetworkOption(ctx context.Context, key string) (string, bool, error)
	SetNetworkOption(ctx context.Context, key, value string) error
	GetTenantOption(ctx context.Context, key string) (string, bool, error)
	SetTenantOption(ctx context.Context, key, value string) error
}

// Env carries the shared services a component may depend on. It is threaded
// explicitly into every factory; components never reach for globals.
type Env struct {
	Options OptionStore
	Logger  *logger.Logger
	Network types.NetworkConfig
}

// Factory creates a component singleton. Invoked at most once per process,
// and never for a component in the disabled set.
type Factory func(env *Env) (Component, error)

// Configurable is the optional capability for components that persist
// options. Defaults are written on first activation only; existing values
// are never overwritten.
type Configurable interface {
	Component
	DefaultNetworkOptions() map[string]string
	DefaultTenantOptions() map[string]string
}

// AdminPage describes one settings page contributed to the administrative
// surface. Rendering is owned by the admin layer; the component only
// supplies the handler.
type AdminPage struct {
	Slug    string
	Title   string
	Handler http.HandlerFunc
}

// AdminPageProvider is the optional capability for components that
// contribute a settings page.
type AdminPageProvider interface {
	Component
	AdminPage() AdminPage
}

// Subscriber is the optional capability for components that react to
// content mutation events. Subscriptions are wired by the registry after
// construction, not as a side effect inside factories, so hook wiring can
// be inspected and tested independently of instantiation.
type Subscriber interface {
	Component
	Subscriptions() []events.Subscription
}

// ComponentError represents errors specific to component operations
type ComponentError struct {
	ComponentID string
	Operation   string
	Message     string
	Cause       error
}

func (e *ComponentError) Error() string {
	if e.Cause != nil {
		return e.ComponentID + "." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return e.ComponentID + "." + e.Operation + ": " + e.Message
}

func (e *ComponentError) Unwrap() error {
	return e.Cause
}

// NewComponentError creates a new ComponentError
func NewComponentError(componentID, operation, message string, cause error) *ComponentError {
	return &ComponentError{
		ComponentID: componentID,
		Operation:   operation,
		Message:     message,
		Cause:       cause,
	}
}
