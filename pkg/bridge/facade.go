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

package bridge

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/agcty/valtio-yjs-sub001/pkg/bridgeerr"
	"github.com/agcty/valtio-yjs-sub001/pkg/convert"
	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// Options configures CreateProxy. Root defaults to "root"; Clock defaults
// to the real wall clock; Logger defaults to a no-op logger.
type Options struct {
	Root   string
	Clock  clock.Clock
	Logger logr.Logger
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "root"
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}

// CreateProxy is the bridge's single entry point (spec.md §2): it
// materializes doc's named root map as a reactive object kept bidirectionally
// in sync with the Doc, and returns the object, the Context needed to read
// and mutate it, and a dispose func that stops all propagation in both
// directions.
func CreateProxy(doc *sharedoc.Doc, opts Options) (ctx *Context, root *reactobj.ReactiveObject, dispose func()) {
	opts = opts.withDefaults()
	rootMap := doc.GetMap(opts.Root)
	ctx = NewContext(doc, rootMap, opts.Clock, opts.Logger)
	root = ctx.materializeMap(rootMap)
	unobserve := ctx.attachSyncListener(doc)
	ctx.registerDisposable(unobserve)
	return ctx, root, ctx.Dispose
}

// Bootstrap seeds root with initial if and only if root is currently empty
// (spec.md §6: bootstrap is a one-time, conflict-checked operation, never a
// merge). initial's keys are written inside a single Doc transaction and
// immediately reflected onto root without re-entering the Write Scheduler.
func (c *Context) Bootstrap(root *reactobj.ReactiveObject, initial *orderedmap.OrderedMap[string, any]) error {
	shared, ok := c.sharedFor(root)
	if !ok {
		return bridgeerr.NewBootstrapConflict("root has not been materialized")
	}
	sm, ok := shared.(*sharedoc.SMap)
	if !ok {
		return bridgeerr.NewBootstrapConflict("root is not a map")
	}
	if sm.Len() > 0 {
		return bridgeerr.NewBootstrapConflict("root already has state")
	}
	if err := convert.ValidateDeep(initial); err != nil {
		return err
	}

	c.doc.Transact(ORIGIN, func(tx *sharedoc.Tx) {
		for _, key := range initial.Keys() {
			v, _ := initial.Get(key)
			shared, err := convert.PlainToShared(c.doc, v)
			if err != nil {
				c.logger.Error(err, "bridge: bootstrap value failed conversion after passing validation", "key", key)
				continue
			}
			tx.SetMapKey(sm, key, shared)
		}
	})

	c.withReconcilingLock(func() {
		for _, key := range initial.Keys() {
			key := key
			v, ok := sm.Get(key)
			if !ok {
				continue
			}
			val := c.projectForStorage(v, func(leaf sharedoc.Leaf) { root.Set(key, leaf) })
			root.Set(key, val)
		}
	})
	return nil
}
