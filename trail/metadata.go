/*
	Songtrail
	Copyright (c) 2024 Songtrail contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package trail

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Metadata is a map of arbitrary extra information to associate
// with a song or point. It is passed through the pairing untouched.
// Keys should be human-readable when possible.
type Metadata map[string]any

// Clean removes keys with empty values (nil, blank strings, zero
// times, zero numbers) or keys that are the empty string. Boolean
// false is not considered empty.
func (m Metadata) Clean() {
	for k, v := range m {
		if strings.TrimSpace(k) == "" || isEmpty(v) {
			delete(m, k)
		}
	}
}

// Keys returns the keys of m in sorted order, for stable output.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value at key formatted as a string, or ""
// if there is no value.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(*string); ok {
		if s == nil {
			return ""
		}
		return *s
	}
	return fmt.Sprint(v)
}

// MetadataMergePolicy is a type that specifies how to handle
// merging of metadata when there is a key conflict.
type MetadataMergePolicy int

const (
	// MetaMergeAppend keeps both values. It finds the next unused counter
	// and appends it to the key so that both values can be preserved; for
	// example, if "Foo" already exists, then it will be saved as "Foo 2".
	MetaMergeAppend MetadataMergePolicy = iota

	// MetaMergeReplace replaces any existing value with the incoming one.
	MetaMergeReplace

	// MetaMergeReplaceEmpty only replaces the existing value with the
	// incoming one if the existing value is empty.
	MetaMergeReplaceEmpty

	// MetaMergeSkip will skip any incoming value if the key already exists.
	MetaMergeSkip
)

// Merge adds the incoming metadata to m according to the specified conflict policy.
func (m Metadata) Merge(incoming Metadata, policy MetadataMergePolicy) {
	for key, val := range incoming {
		currentVal, ok := m[key]
		if !ok {
			m[key] = val
			continue
		}
		if val == currentVal {
			continue
		}
		switch policy {
		case MetaMergeAppend:
			for i := 2; i < 100; i++ {
				newKey := fmt.Sprintf("%s %d", key, i)
				if _, ok := m[newKey]; !ok {
					m[newKey] = val
					break
				}
			}
		case MetaMergeReplace:
			m[key] = val
		case MetaMergeReplaceEmpty:
			if isEmpty(currentVal) {
				m[key] = val
			}
		case MetaMergeSkip:
		}
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *string:
		return val == nil || strings.TrimSpace(*val) == ""
	case time.Time:
		return val.IsZero()
	case *time.Time:
		return val == nil || val.IsZero()
	case time.Duration:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case *int64:
		return val == nil || *val == 0
	case float64:
		return val < 0.00000000000001 && val > -0.00000000000001
	case *float64:
		return val == nil || *val == 0
	case *bool:
		return val == nil
	}
	return false
}
