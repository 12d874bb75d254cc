// Copyright 2022 Google LLC
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

// Command bridgedemo wires a bridge.Context around a named Doc and drives it
// from stdin: one JSON object per line, each key/value interpreted as a
// single top-level write to the proxied root. It exists to exercise
// CreateProxy and Bootstrap end to end without a host application, the way
// the teacher's cmd/reconciler/main.go wires a reconciler.Options and calls
// reconciler.Run.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/agcty/valtio-yjs-sub001/pkg/bridge"
	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

var (
	siteID = pflag.String("site-id", "", "Doc site identifier; defaults to a fresh random id")
	root   = pflag.String("root", "root", "name of the root map materialized as a proxy")
	debug  = pflag.Bool("debug", false, "enable debug-level structured logging")
)

func main() {
	pflag.Parse()

	zapLog, err := newZapLogger(*debug)
	if err != nil {
		klog.Fatalf("failed to build logger: %v", err)
	}
	defer func() {
		_ = zapLog.Sync()
	}()
	logger := zapr.NewLogger(zapLog)

	site := *siteID
	if site == "" {
		site = uuid.NewString()
	}

	klog.Infof("starting bridgedemo: site=%s root=%s", site, *root)

	doc := sharedoc.NewDoc(site)
	ctx, obj, dispose := bridge.CreateProxy(doc, bridge.Options{
		Root:   *root,
		Clock:  clock.RealClock{},
		Logger: logger,
	})
	defer dispose()

	initial := orderedmap.NewOrderedMap[string, any]()
	initial.Set("createdAt", time.Now().UTC().Format(time.RFC3339))
	if err := ctx.Bootstrap(obj, initial); err != nil {
		klog.Warningf("bootstrap skipped: %v", err)
	}

	klog.Info("ready: send one JSON object per line on stdin, each key becomes a top-level write")
	runLoop(ctx, obj)
	klog.Info("stdin closed, shutting down")
}

func runLoop(ctx *bridge.Context, obj *reactobj.ReactiveObject) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			klog.Warningf("skipping malformed line: %v", err)
			continue
		}
		for k, v := range entry {
			if err := ctx.SetKey(obj, k, v); err != nil {
				klog.Warningf("rejected write to %q: %v", k, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "ok: %s\n", k)
		}
	}
	if err := scanner.Err(); err != nil {
		klog.Warningf("stdin scan error: %v", err)
	}
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
