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

import "strings"

const (
	slash       = "/"
	tilde       = "~"
	escapeSlash = "~1"
	escapeTilde = "~0"
)

// Path is a JSON-Pointer-shaped (RFC 6901) walk from a validated root down
// to the node that failed validation, used to build actionable
// UnsupportedValue error messages ("at /children/2/name: ...") instead of
// just naming the offending Go value in isolation.
type Path []string

// String renders the path in JSON Pointer form.
func (p Path) String() string {
	if len(p) == 0 {
		return slash
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		b.WriteString(escapeSegment(seg))
	}
	return b.String()
}

// Push returns a new Path with seg appended, leaving p untouched — callers
// recurse with path.Push(key) the way a stack frame would, so a sibling's
// failure doesn't see an already-extended path.
func (p Path) Push(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	r := strings.NewReplacer(tilde, escapeTilde, slash, escapeSlash)
	return r.Replace(s)
}

func unescapeSegment(s string) string {
	if !strings.Contains(s, tilde) {
		return s
	}
	r := strings.NewReplacer(escapeTilde, tilde, escapeSlash, slash)
	return r.Replace(s)
}
