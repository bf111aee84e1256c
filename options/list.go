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

package options

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"classblogs/platform/plugins/base"
)

// List-typed options hold a set of IDs encoded as a JSON string array.
// Add and remove are idempotent by ID: adding a present ID or removing an
// absent one changes nothing and is not an error. The stored form is kept
// sorted so repeated round trips are byte-stable.

// NetworkList reads a list-typed network option. An absent option is an
// empty list.
func NetworkList(ctx context.Context, store base.OptionStore, key string) ([]string, error) {
	raw, ok, err := store.GetNetworkOption(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	return decodeList(key, raw)
}

// AddToNetworkList adds id to a list-typed network option, idempotently.
func AddToNetworkList(ctx context.Context, store base.OptionStore, key, id string) error {
	list, err := NetworkList(ctx, store, key)
	if err != nil {
		return err
	}

	list, changed := addID(list, id)
	if !changed {
		return nil
	}
	return writeNetworkList(ctx, store, key, list)
}

// RemoveFromNetworkList removes id from a list-typed network option,
// idempotently.
func RemoveFromNetworkList(ctx context.Context, store base.OptionStore, key, id string) error {
	list, err := NetworkList(ctx, store, key)
	if err != nil {
		return err
	}

	list, changed := removeID(list, id)
	if !changed {
		return nil
	}
	return writeNetworkList(ctx, store, key, list)
}

// TenantList reads a list-typed option scoped to the current tenant.
func TenantList(ctx context.Context, store base.OptionStore, key string) ([]string, error) {
	raw, ok, err := store.GetTenantOption(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	return decodeList(key, raw)
}

// AddToTenantList adds id to a list-typed tenant option, idempotently.
func AddToTenantList(ctx context.Context, store base.OptionStore, key, id string) error {
	list, err := TenantList(ctx, store, key)
	if err != nil {
		return err
	}

	list, changed := addID(list, id)
	if !changed {
		return nil
	}
	raw, err := encodeList(list)
	if err != nil {
		return err
	}
	return store.SetTenantOption(ctx, key, raw)
}

// RemoveFromTenantList removes id from a list-typed tenant option,
// idempotently.
func RemoveFromTenantList(ctx context.Context, store base.OptionStore, key, id string) error {
	list, err := TenantList(ctx, store, key)
	if err != nil {
		return err
	}

	list, changed := removeID(list, id)
	if !changed {
		return nil
	}
	raw, err := encodeList(list)
	if err != nil {
		return err
	}
	return store.SetTenantOption(ctx, key, raw)
}

func writeNetworkList(ctx context.Context, store base.OptionStore, key string, list []string) error {
	raw, err := encodeList(list)
	if err != nil {
		return err
	}
	return store.SetNetworkOption(ctx, key, raw)
}

func addID(list []string, id string) ([]string, bool) {
	for _, existing := range list {
		if existing == id {
			return list, false
		}
	}
	list = append(list, id)
	sort.Strings(list)
	return list, true
}

func removeID(list []string, id string) ([]string, bool) {
	out := list[:0]
	changed := false
	for _, existing := range list {
		if existing == id {
			changed = true
			continue
		}
		out = append(out, existing)
	}
	return out, changed
}

func decodeList(key, raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("option %s is not a list: %w", key, err)
	}
	return list, nil
}

func encodeList(list []string) (string, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list option: %w", err)
	}
	return string(raw), nil
}
