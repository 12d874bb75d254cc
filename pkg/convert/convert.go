// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package convert

import (
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// PlainToShared folds a plain Go value into the shared container tree
// rooted at doc: nil/bool/string/int/float pass through unchanged, a
// time.Time/*regexp.Regexp/*url.URL collapses to its canonical string form
// the way a JS Date/RegExp/URL collapses when handed to Yjs, an
// *orderedmap.OrderedMap[string, any] or map[string]any becomes a fresh
// *sharedoc.SMap, an []any becomes a fresh *sharedoc.SArray, and a value
// that is already shared (IsContainer) passes through unchanged (spec.md
// §4.1's "already-shared passthrough"). Returns an *UnsupportedValueError
// for anything with no well-defined shared representation.
//
// The returned tree is fully built but detached: the caller attaches it to
// a live container inside a sharedoc.Tx, which is what produces the deep
// event — PlainToShared itself never opens a transaction.
func PlainToShared(doc *sharedoc.Doc, value any) (any, error) {
	return plainToShared(doc, nil, value)
}

func plainToShared(doc *sharedoc.Doc, path Path, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if IsContainer(value) {
		return value, nil
	}
	switch v := value.(type) {
	case bool, string:
		return v, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v, nil
	case float32:
		return checkFloat(path, float64(v))
	case float64:
		return checkFloat(path, v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case *regexp.Regexp:
		return v.String(), nil
	case *url.URL:
		return v.String(), nil
	case *orderedmap.OrderedMap[string, any]:
		return plainObjectToShared(doc, path, v.Keys(), func(k string) any { val, _ := v.Get(k); return val })
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return plainObjectToShared(doc, path, keys, func(k string) any { return v[k] })
	case []any:
		arr := sharedoc.NewDetachedSArray(doc)
		for i, elem := range v {
			child, err := plainToShared(doc, path.Push(strconv.Itoa(i)), elem)
			if err != nil {
				return nil, err
			}
			arr.SeedAppend(child)
		}
		return arr, nil
	}
	reason, ok := rejectReason(value)
	if ok {
		return nil, newUnsupportedValueError(path, reason)
	}
	return nil, newUnsupportedValueError(path, "value has no shared representation")
}

func plainObjectToShared(doc *sharedoc.Doc, path Path, keys []string, get func(string) any) (any, error) {
	m := sharedoc.NewDetachedSMap(doc)
	for _, k := range keys {
		child, err := plainToShared(doc, path.Push(k), get(k))
		if err != nil {
			return nil, err
		}
		m.SeedKey(k, child)
	}
	return m, nil
}

func checkFloat(path Path, f float64) (float64, error) {
	if math.IsNaN(f) {
		return 0, newUnsupportedValueError(path, "NaN has no shared representation")
	}
	if math.IsInf(f, 0) {
		return 0, newUnsupportedValueError(path, "Infinity has no shared representation")
	}
	return f, nil
}

// rejectReason explains why v cannot be represented in the shared document,
// mirroring spec.md §4.1's rejection list (functions, symbols, Map/Set,
// class instances, ...) translated to the closest Go equivalents.
func rejectReason(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return "functions cannot be shared", true
	case reflect.Chan:
		return "channels cannot be shared", true
	case reflect.Complex64, reflect.Complex128:
		return "complex numbers cannot be shared", true
	case reflect.UnsafePointer:
		return "unsafe pointers cannot be shared", true
	case reflect.Struct:
		return "struct values are not plain data; convert to a map or array first", true
	case reflect.Ptr:
		if rv.Elem().Kind() == reflect.Struct {
			return "pointers to struct types are not plain data; convert to a map or array first", true
		}
	case reflect.Map:
		return "maps with non-string keys are not supported", true
	}
	return "", false
}

// SharedToPlain is the inverse of PlainToShared's container cases: an
// *sharedoc.SMap becomes an *orderedmap.OrderedMap[string, any] preserving
// key order, an *sharedoc.SArray becomes an []any, a Leaf becomes its
// Snapshot(), and anything else passes through unchanged. The Materializer
// uses it to store a map/array child on a controller as a plain snapshot
// until that child is first read.
func SharedToPlain(value any) any {
	switch v := value.(type) {
	case sharedoc.Leaf:
		return v.Snapshot()
	case *sharedoc.SMap:
		out := orderedmap.NewOrderedMap[string, any]()
		for _, k := range v.Keys() {
			cv, _ := v.Get(k)
			out.Set(k, SharedToPlain(cv))
		}
		return out
	case *sharedoc.SArray:
		snap := v.Snapshot()
		out := make([]any, len(snap))
		for i, cv := range snap {
			out[i] = SharedToPlain(cv)
		}
		return out
	default:
		return v
	}
}

// ValidateDeep walks value the same way PlainToShared would without
// building anything, returning an *UnsupportedValueError naming the first
// offending node's path. The React→Doc subscriptions run this on every
// planned value before enqueueing anything (and Bootstrap before its
// transaction), so that a rejected value rolls the React-side burst back
// cleanly (spec.md §7) without the Doc ever being touched.
func ValidateDeep(value any) error {
	return validateDeep(nil, value)
}

func validateDeep(path Path, value any) error {
	if value == nil || IsContainer(value) {
		return nil
	}
	switch v := value.(type) {
	case bool, string:
		return nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float32:
		_, err := checkFloat(path, float64(v))
		return err
	case float64:
		_, err := checkFloat(path, v)
		return err
	case time.Time, *regexp.Regexp, *url.URL:
		return nil
	case *orderedmap.OrderedMap[string, any]:
		for _, k := range v.Keys() {
			cv, _ := v.Get(k)
			if err := validateDeep(path.Push(k), cv); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for k, cv := range v {
			if err := validateDeep(path.Push(k), cv); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, elem := range v {
			if err := validateDeep(path.Push(strconv.Itoa(i)), elem); err != nil {
				return err
			}
		}
		return nil
	}
	reason, ok := rejectReason(value)
	if ok {
		return newUnsupportedValueError(path, reason)
	}
	return newUnsupportedValueError(path, "value has no shared representation")
}
