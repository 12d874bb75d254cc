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

import "fmt"

// UnsupportedValueError reports a value the Converter refuses to fold into
// the Doc: something with no well-defined shared-container or CRDT-scalar
// representation (spec.md §4.1's rejection list — NaN, Infinity, channels,
// functions, and similar non-data values in the Go rendition).
type UnsupportedValueError struct {
	Path   Path
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("convert: unsupported value at %s: %s", e.Path, e.Reason)
}

func newUnsupportedValueError(path Path, reason string) *UnsupportedValueError {
	return &UnsupportedValueError{Path: path, Reason: reason}
}
