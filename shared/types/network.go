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

// Package types provides shared type definitions used across ClassBlogs
// services. This file defines deployment mode configuration for single-site
// vs network installations.
package types

// TenantID identifies one blog on the network. Opaque to this subsystem;
// tenants are discovered, not configured here.
type TenantID string

// String returns the string representation of the TenantID
func (id TenantID) String() string {
	return string(id)
}

// UserID identifies one network-wide user. The same student posting on two
// different blogs carries the same UserID on both.
type UserID int64

// NetworkMode represents the installation type
type NetworkMode string

const (
	// NetworkModeMulti is a full network: many blogs, one admin
	NetworkModeMulti NetworkMode = "network"
	// NetworkModeSingle is a standalone single-blog installation
	NetworkModeSingle NetworkMode = "single"
)

// String returns the string representation of the NetworkMode
func (m NetworkMode) String() string {
	return string(m)
}

// IsValid returns true if the NetworkMode is a valid known value
func (m NetworkMode) IsValid() bool {
	switch m {
	case NetworkModeMulti, NetworkModeSingle:
		return true
	default:
		return false
	}
}

// NetworkConfig contains installation-specific settings that control tenant
// switching and aggregation behavior.
//
// Network installations switch tenant context for every cross-blog read.
// Single-site installations treat tenant switching as a no-op.
type NetworkConfig struct {
	// Mode is the installation type (network or single)
	Mode NetworkMode `json:"mode"`

	// RootTenant is the tenant that serves the network front page
	RootTenant TenantID `json:"root_tenant"`

	// AggregationEnabled enables cross-tenant content aggregation
	AggregationEnabled bool `json:"aggregation_enabled"`
}

// DefaultNetworkConfig returns the default configuration for a full network
// installation with aggregation enabled.
func DefaultNetworkConfig(root TenantID) NetworkConfig {
	return NetworkConfig{
		Mode:               NetworkModeMulti,
		RootTenant:         root,
		AggregationEnabled: true,
	}
}

// DefaultSingleConfig returns the configuration for a standalone
// installation. Aggregation degenerates to reading the one local tenant.
func DefaultSingleConfig(root TenantID) NetworkConfig {
	return NetworkConfig{
		Mode:               NetworkModeSingle,
		RootTenant:         root,
		AggregationEnabled: false,
	}
}

// IsNetwork returns true if this installation manages multiple tenants
func (c NetworkConfig) IsNetwork() bool {
	return c.Mode == NetworkModeMulti
}
