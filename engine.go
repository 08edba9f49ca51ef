// Copyright 2016 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wilco

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
)

// Engine holds the process-wide state a single wilco invocation needs
// outside of any one Database: the resolved build/cache directories, the
// set of files the configuration program itself depends on, and the
// cancellation signal the executor's driver loop watches. It is the
// Go-native stand-in for the original's global Environment plus its
// once-installed SIGINT handler.
type Engine struct {
	BuildPath      string
	WilcoCachePath string

	mu                        sync.Mutex
	configurationDependencies map[string]struct{}

	signalOnce sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewEngine records buildPath/wilcoCachePath as given, without resolving
// them against the working directory (empty strings fall back to the
// defaults, "buildfiles" and ".wilcofiles"), and installs the interrupt
// handler exactly once.
func NewEngine(buildPath, wilcoCachePath string) *Engine {
	if buildPath == "" {
		buildPath = "buildfiles"
	}
	if wilcoCachePath == "" {
		wilcoCachePath = ".wilcofiles"
	}

	e := &Engine{
		BuildPath:                 buildPath,
		WilcoCachePath:             wilcoCachePath,
		configurationDependencies: make(map[string]struct{}),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.installSignalHandler()
	return e
}

// installSignalHandler arms a single SIGINT/SIGTERM listener that cancels
// Context, which the executor's driver loop observes cooperatively: new
// commands stop being admitted, but those already running are allowed to
// finish (spec.md §4.5.2).
func (e *Engine) installSignalHandler() {
	e.signalOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger().Warn("interrupted, draining in-flight commands")
			e.cancel()
		}()
	})
}

// Context returns the cancellation context tied to this Engine's interrupt
// handler. The executor receives it directly so the driver loop never
// polls a global flag.
func (e *Engine) Context() context.Context {
	return e.ctx
}

// AddConfigurationDependency records that path feeds the configuration
// database (spec.md §4.7): changing it should be detected as "the
// configuration needs to re-run". Paths are canonicalized and deduplicated.
func (e *Engine) AddConfigurationDependency(path string) {
	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		if wd, err := os.Getwd(); err == nil {
			abs = filepath.Join(wd, abs)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configurationDependencies[abs] = struct{}{}
}

// ConfigurationDependencies returns every recorded configuration
// dependency path, sorted for deterministic iteration.
func (e *Engine) ConfigurationDependencies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, 0, len(e.configurationDependencies))
	for p := range e.configurationDependencies {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
