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

/*
Package registry manages the network's component set: registration at
startup, lookup, listing for the admin surface, and persisted
enable/disable state.

# Registration

Components register once at process start, in a fixed order, through a
factory:

	err := reg.Register(ctx, "sitewide-feed", func(env *base.Env) (base.Component, error) {
	    return sitewide.New(env, cache), nil
	}, registry.WithDisplayName("Sitewide Feed"))

Duplicate and empty IDs are rejected outright; both indicate a programming
error, not a runtime condition. The factory for a disabled component never
runs, so a disabled component costs nothing.

# Enable and disable

The disabled set persists in the network database and is read once at
registry construction. Enable and Disable update the persisted set
immediately but deliberately do not construct or tear down instances:
toggles take effect on the next process start. Components registered with
Required cannot be disabled.

# Hook wiring

Components that subscribe to mutation events declare their subscriptions
via the Subscriber capability. WireSubscriptions runs as a separate pass
after all registrations so the full wiring is inspectable and disabled
components never attach handlers.
*/
package registry
