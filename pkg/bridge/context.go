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

// Package bridge wires the Converter (pkg/convert), the Doc (pkg/sharedoc)
// and React (pkg/reactobj) models together: lazy controller materialization,
// the React→Doc write scheduler, and the Doc→React reconciler.
package bridge

import (
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// ORIGIN is the opaque tag every bridge-issued Doc transaction carries.
// Application code may filter ObserveDeep batches by it.
const ORIGIN sharedoc.Origin = "valtio-yjs-sub001/bridge"

// Context is one createProxy instance's worth of state: identity caches, the
// reentrancy flag, disposers, and the write scheduler. spec.md §3.
type Context struct {
	mu sync.Mutex

	doc  *sharedoc.Doc
	root sharedoc.Container

	sharedToController map[sharedoc.Container]reactobj.Controller
	controllerToShared map[reactobj.Controller]sharedoc.Container

	subscriptionOf map[sharedoc.Container]func()
	allDisposers   []func()
	disposed       bool

	reconciling bool
	burstErr    error

	scheduler *scheduler
	logger    logr.Logger
}

// NewContext creates a Context bound to doc and rooted at root, scheduling
// flushes on clk (injected so tests can step time deterministically instead
// of racing a real wall clock).
func NewContext(doc *sharedoc.Doc, root sharedoc.Container, clk clock.Clock, logger logr.Logger) *Context {
	c := &Context{
		doc:                doc,
		root:               root,
		sharedToController: make(map[sharedoc.Container]reactobj.Controller),
		controllerToShared: make(map[reactobj.Controller]sharedoc.Container),
		subscriptionOf:     make(map[sharedoc.Container]func()),
		logger:             logger,
	}
	c.scheduler = newScheduler(c, clk, logger)
	return c
}

// Doc returns the bound Doc.
func (c *Context) Doc() *sharedoc.Doc { return c.doc }

// isReconciling reports whether the reentrancy lock is currently held.
func (c *Context) isReconciling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciling
}

// withReconcilingLock runs fn with the reentrancy flag held, saving and
// restoring the previous value so nested invocations nest safely (spec.md
// §4.3) instead of a plain set-true/set-false pair clobbering an outer
// caller's lock on exit.
func (c *Context) withReconcilingLock(fn func()) {
	c.mu.Lock()
	prev := c.reconciling
	c.reconciling = true
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	c.reconciling = prev
	c.mu.Unlock()
}

// noteBurstError records a validation failure raised by a React→Doc
// subscription so the originating SetKey/DeleteKey/Splice call (still on
// the same goroutine, since Batch invokes subscribers synchronously) can
// observe and return it once Set/Delete/Splice returns.
func (c *Context) noteBurstError(err error) {
	c.mu.Lock()
	c.burstErr = err
	c.mu.Unlock()
}

// takeBurstError returns and clears the last recorded burst error.
func (c *Context) takeBurstError() error {
	c.mu.Lock()
	err := c.burstErr
	c.burstErr = nil
	c.mu.Unlock()
	return err
}

// registerIdentity records the shared<->controller pairing (spec.md §3
// invariant 1).
func (c *Context) registerIdentity(shared sharedoc.Container, ctrl reactobj.Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sharedToController[shared] = ctrl
	c.controllerToShared[ctrl] = shared
}

// controllerFor returns the controller already materialized for shared, if
// any.
func (c *Context) controllerFor(shared sharedoc.Container) (reactobj.Controller, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctrl, ok := c.sharedToController[shared]
	return ctrl, ok
}

// sharedFor returns the shared container backing ctrl.
func (c *Context) sharedFor(ctrl reactobj.Controller) (sharedoc.Container, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	shared, ok := c.controllerToShared[ctrl]
	return shared, ok
}

// registerSubscription disposes any prior React→Doc subscription for shared
// and records disposer as its replacement (spec.md §4.3).
func (c *Context) registerSubscription(shared sharedoc.Container, disposer func()) {
	c.mu.Lock()
	prior, ok := c.subscriptionOf[shared]
	c.subscriptionOf[shared] = disposer
	c.mu.Unlock()
	if ok && prior != nil {
		prior()
	}
}

// registerDisposable records fn to run on Dispose, in addition to the
// per-container subscriptions tracked by registerSubscription.
func (c *Context) registerDisposable(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allDisposers = append(c.allDisposers, fn)
}

// Dispose stops all propagation in both directions. Idempotent (spec.md §8
// "idempotent dispose").
func (c *Context) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	subs := c.subscriptionOf
	c.subscriptionOf = make(map[sharedoc.Container]func())
	disposers := c.allDisposers
	c.allDisposers = nil
	c.mu.Unlock()

	for _, d := range subs {
		d()
	}
	for _, d := range disposers {
		d()
	}
}
