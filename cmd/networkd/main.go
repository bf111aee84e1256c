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

// Package main is the entry point for the ClassBlogs network daemon.
//
// The daemon runs the shared services behind a multi-blog classroom
// network:
// - Component registry with persisted enable/disable state
// - Cross-tenant content aggregation with cached results
// - Per-component network and tenant options
// - Admin HTTP API for network administrators
//
// Usage:
//
//	./networkd
//
// Environment Variables:
//
//	NETWORK_CONFIG - path to the YAML configuration file (optional)
//	PORT - HTTP server port (default: 8082)
//	DATABASE_URL - network database connection string
//	JWT_SECRET - admin API token signing secret
package main

import (
	"classblogs/platform/networkd"
)

func main() {
	networkd.Run()
}
