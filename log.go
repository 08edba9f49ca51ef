// Copyright 2011 Google Inc. All Rights Reserved.
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
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logOnce sync.Once
	log_    *log.Logger
)

// logger returns the package-wide structured logger, created lazily with
// the teacher's os.Stderr + prefix convention the first time it is needed.
func logger() *log.Logger {
	logOnce.Do(func() {
		log_ = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "wilco",
		})
	})
	return log_
}

// SetVerbose raises the package logger to debug level, so every dirtiness
// decision logged by explain is shown. Echoing command lines is controlled
// separately by RunCommands' verbose argument.
func SetVerbose(verbose bool) {
	if verbose {
		logger().SetLevel(log.DebugLevel)
	} else {
		logger().SetLevel(log.InfoLevel)
	}
}
