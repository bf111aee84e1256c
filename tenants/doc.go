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

// Package tenants defines the tenant store contract and the switcher that
// scopes tenant context changes. Entering a tenant makes its content
// current for queries; a Guard ties the matching leave to scope exit so no
// code path can strand the process in the wrong tenant. Driver-backed
// stores live in the postgres and mysql subpackages.
package tenants
