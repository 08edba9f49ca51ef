// Copyright 2012 Google Inc. All Rights Reserved.
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

var (
	keepDepfile = false
	keepRsp     = false
)

// SetKeepDepfile controls whether harvestDepFile deletes a command's
// depfile after folding its contents into the database. Debugging a
// compiler's dependency output calls for keeping it around.
func SetKeepDepfile(keep bool) {
	keepDepfile = keep
}

// SetKeepRsp controls whether runCommand deletes a command's response
// file once the command has finished. Debugging a failing command's
// rsp-file contents calls for keeping it around.
func SetKeepRsp(keep bool) {
	keepRsp = keep
}

// explain logs the reason a command was judged dirty, at debug level, so
// --verbose can show why the filter chose to rebuild something.
func explain(f string, i ...interface{}) {
	logger().Debugf(f, i...)
}
