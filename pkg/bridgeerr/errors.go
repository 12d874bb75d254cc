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

// Package bridgeerr is the bridge's error taxonomy: the handful of
// conditions that cross a package boundary as a distinguishable error
// rather than a bare logged message.
package bridgeerr

import (
	"fmt"

	"go.uber.org/multierr"
)

// BootstrapConflictError reports that Bootstrap was asked to merge initial
// state into a non-empty root, or was called a second time; Bootstrap also
// returns it when the given root is not a materialized map controller. In
// every case nothing is written.
type BootstrapConflictError struct {
	Reason string
}

func (e *BootstrapConflictError) Error() string {
	return fmt.Sprintf("bridge: bootstrap conflict: %s", e.Reason)
}

// NewBootstrapConflict builds a BootstrapConflictError with reason.
func NewBootstrapConflict(reason string) *BootstrapConflictError {
	return &BootstrapConflictError{Reason: reason}
}

// ReconciliationFailure aggregates one batch's worth of failed Doc→React
// reconciliation, one error per failed event, with multierr instead of
// losing all but the last one. The listener logs the aggregate and
// swallows it (a bad event must not block reconciliation of the others).
type ReconciliationFailure struct {
	errs error
}

// Add folds err into the aggregate, a no-op if err is nil.
func (r *ReconciliationFailure) Add(err error) {
	if err == nil {
		return
	}
	r.errs = multierr.Append(r.errs, err)
}

// ErrorOrNil returns the aggregated error, or nil if nothing was added.
func (r *ReconciliationFailure) ErrorOrNil() error {
	return r.errs
}
