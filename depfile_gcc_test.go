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
	"reflect"
	"testing"
)

func TestParseGCCDepfileBasic(t *testing.T) {
	content := []byte("foo.o: foo.c foo.h\n")
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"foo.c", "foo.h"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileLineContinuation(t *testing.T) {
	content := []byte("foo.o: foo.c \\\n  foo.h \\\n  bar.h\n")
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"foo.c", "foo.h", "bar.h"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileTrailingBackslashBeforeContinuation(t *testing.T) {
	content := []byte("tgt: a\\ b c\\\n d")
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"a b", "c", "d"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileEscapedSpace(t *testing.T) {
	content := []byte(`foo.o: My\ Documents/foo.c`)
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"My Documents/foo.c"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileDedups(t *testing.T) {
	content := []byte("foo.o: foo.c foo.h foo.c\n")
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"foo.c", "foo.h"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileSpaceBeforeColon(t *testing.T) {
	content := []byte("foo.o : foo.c\n")
	paths, err := parseGCCDepfile(content)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	want := []string{"foo.c"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestParseGCCDepfileEmpty(t *testing.T) {
	paths, err := parseGCCDepfile(nil)
	if err != nil {
		t.Fatalf("parseGCCDepfile: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("paths = %v, want empty", paths)
	}
}
