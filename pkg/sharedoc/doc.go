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

package sharedoc

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Origin tags every Doc transaction with who caused it. The bridge uses a
// single well-known Origin value for every write it issues (spec.md §3
// invariant 3); anything else is considered a remote/local-app write.
type Origin string

// Container is implemented by SMap and SArray: the two shared container
// kinds spec.md §3 defines. A leaf kind that embeds an SMap for storage
// (TextLeaf) also satisfies this interface through promoted methods, so
// callers check for Leaf before treating a value as a Container.
type Container interface {
	ID() string
	Doc() *Doc
	Parent() Container
}

// Doc is the CRDT document: the authoritative shared state described by
// spec.md §3. It owns one or more named root containers, runs mutations
// inside transactions tagged by Origin, and notifies deep-event observers
// once per transaction (never mid-transaction).
type Doc struct {
	mu sync.Mutex

	siteID  string
	counter uint64

	roots map[string]any // name -> *SMap | *SArray

	observers map[int]func(Batch)
	nextObs   int

	tx *txState
}

type txState struct {
	origin Origin
	events []DeepEvent
	depth  int
}

// NewDoc creates an empty Doc. siteID should be stable for the lifetime of
// the peer (it participates in conflict tie-breaking); callers that don't
// care can leave it empty and a random one is generated.
func NewDoc(siteID string) *Doc {
	if siteID == "" {
		siteID = uuid.NewString()
	}
	return &Doc{
		siteID:    siteID,
		roots:     make(map[string]any),
		observers: make(map[int]func(Batch)),
	}
}

// SiteID is this Doc instance's identity for conflict tie-breaking.
func (d *Doc) SiteID() string { return d.siteID }

// nextStamp advances the Doc's logical clock and returns a fresh Stamp for
// the write currently in flight. Must be called with d.mu held.
func (d *Doc) nextStamp(now int64) Stamp {
	d.counter++
	return Stamp{
		Clock:     VectorClock{d.siteID: d.counter},
		Timestamp: now,
		SiteID:    d.siteID,
	}
}

// GetMap returns the named root SMap, creating it on first access.
func (d *Doc) GetMap(name string) *SMap {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.roots[name]; ok {
		m, ok := v.(*SMap)
		if !ok {
			panic(fmt.Sprintf("sharedoc: root %q is not an SMap", name))
		}
		return m
	}
	m := newSMap(d)
	d.roots[name] = m
	return m
}

// GetArray returns the named root SArray, creating it on first access.
func (d *Doc) GetArray(name string) *SArray {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.roots[name]; ok {
		a, ok := v.(*SArray)
		if !ok {
			panic(fmt.Sprintf("sharedoc: root %q is not an SArray", name))
		}
		return a
	}
	a := newSArray(d)
	d.roots[name] = a
	return a
}

// Tx is the handle passed to the function given to Transact. All container
// mutation methods require a *Tx so that they can only be called inside a
// transaction, which is how spec.md §4.5/§5 guarantee "one Doc transaction
// per flush".
type Tx struct {
	doc   *Doc
	stamp Stamp
}

// Doc returns the transaction's owning Doc.
func (tx *Tx) Doc() *Doc { return tx.doc }

// recordEvent appends a deep event to the enclosing transaction. It is
// called from the function passed to Transact, which runs without doc.mu
// held; it takes no lock itself.
func (tx *Tx) recordEvent(ev DeepEvent) {
	tx.doc.tx.events = append(tx.doc.tx.events, ev)
}

// Transact opens (or joins, if already inside one) a transaction tagged
// with origin and runs fn. Deep-event observers are notified once, when
// the outermost Transact call returns, with every event recorded during
// the whole (possibly nested) transaction, and not at all if no event was
// recorded — this is what lets the
// Write Scheduler (spec.md §4.5) flush a whole burst as a single commit.
func (d *Doc) Transact(origin Origin, fn func(tx *Tx)) {
	d.mu.Lock()
	if d.tx != nil {
		if d.tx.origin != origin {
			d.mu.Unlock()
			panic("sharedoc: nested transaction with different origin")
		}
		d.tx.depth++
		d.mu.Unlock()
		fn(&Tx{doc: d, stamp: d.nextStampLocked()})
		d.mu.Lock()
		d.tx.depth--
		d.mu.Unlock()
		return
	}
	d.tx = &txState{origin: origin, depth: 1}
	d.mu.Unlock()

	fn(&Tx{doc: d, stamp: d.nextStampLocked()})

	d.mu.Lock()
	tx := d.tx
	d.tx = nil
	d.mu.Unlock()

	if len(tx.events) == 0 {
		return
	}
	batch := Batch{Origin: tx.origin, Events: tx.events}
	d.mu.Lock()
	obs := make([]func(Batch), 0, len(d.observers))
	for _, fn := range d.observers {
		obs = append(obs, fn)
	}
	d.mu.Unlock()
	for _, fn := range obs {
		fn(batch)
	}
}

// nextStampLocked takes the lock internally; exposed as a helper so
// Transact can hand each nested fn a fresh causal stamp.
func (d *Doc) nextStampLocked() Stamp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextStamp(time.Now().UnixNano())
}

// ObserveDeep registers fn to be called with the Batch of every
// transaction (including ones with this Doc's own Origin — echo
// suppression is the bridge's job, per spec.md §9, not the Doc's).
func (d *Doc) ObserveDeep(fn func(Batch)) (unobserve func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// inTx reports whether a transaction is currently open on this Doc.
func (d *Doc) inTx() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx != nil
}
