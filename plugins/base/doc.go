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

// Package base defines the component contract every network component
// implements: the minimal Component interface, the Env handed to
// factories, and the optional capabilities (Configurable,
// AdminPageProvider, Subscriber) the registry discovers by type
// assertion.
package base
