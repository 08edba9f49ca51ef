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
	"crypto/md5"
	"os"
	"sort"
)

// Signature is a 128-bit content fingerprint. The zero value is
// EmptySignature and means "does not exist" or "never computed".
type Signature [md5.Size]byte

// EmptySignature is the signature of a path that does not exist.
var EmptySignature Signature

// SignaturePair tracks the two-level signature of a path: the signature of
// the path itself (its mtime, for files and directories alike) and, when the
// path is a directory, the signature of its listing. Keeping both lets
// updatePathSignature short-circuit the (more expensive) directory listing
// scan whenever the first signature alone proves nothing changed.
type SignaturePair struct {
	File Signature
	Dir  Signature
}

// computeFileSignature hashes a path's modification time. A path that
// cannot be stat'd (does not exist, permission denied) signs as
// EmptySignature rather than returning an error: non-existence is itself a
// meaningful, stable signature value.
func computeFileSignature(path string) Signature {
	info, err := os.Stat(path)
	if err != nil {
		return EmptySignature
	}
	mtime := info.ModTime().UnixNano()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(mtime >> (8 * i))
	}
	return md5.Sum(buf[:])
}

// computeDirectorySignature hashes the listing of a directory, with entry
// names sorted lexically (os.ReadDir already returns them in that order;
// sort.Strings keeps the hash independent of it). A path that is not a
// directory signs as EmptySignature.
func computeDirectorySignature(path string) Signature {
	entries, err := os.ReadDir(path)
	if err != nil {
		return EmptySignature
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	h := md5.New()
	for _, name := range names {
		h.Write([]byte(name))
	}
	var sum Signature
	copy(sum[:], h.Sum(nil))
	return sum
}

// updatePathSignature refreshes signaturePair in place for path, which may
// be a file or a directory, and reports whether the path was dirty. A path
// that cannot be stat'd always reports dirty. It is deliberately lazy: an
// unchanged file-level signature reports clean without scanning the
// directory listing; only when the file-level signature changed is the
// listing hashed, and a directory whose listing is unchanged then still
// reports clean. A regular file with a changed signature reports dirty.
func updatePathSignature(pair *SignaturePair, path string) bool {
	sig := computeFileSignature(path)
	if sig == EmptySignature {
		*pair = SignaturePair{}
		return true
	}

	if sig == pair.File {
		return false
	}
	pair.File = sig

	dirSig := computeDirectorySignature(path)
	if dirSig != EmptySignature && pair.Dir == dirSig {
		return false
	}

	pair.Dir = dirSig
	return true
}

// md5Sum hashes an arbitrary byte slice, used for depfile content hashes
// (distinct from the path-keyed signatures above).
func md5Sum(content []byte) Signature {
	return md5.Sum(content)
}

// computeCommandSignature hashes exactly what determines a command's
// output: its command line, response-file contents, and declared
// inputs/outputs. Working directory, depfile path, rsp file path, and
// description are deliberately excluded — none of them change what running
// the command produces, so including them would cause spurious rebuilds
// whenever a command is relocated without otherwise changing.
func computeCommandSignature(c *CommandEntry) Signature {
	h := md5.New()
	h.Write([]byte(c.Command))
	h.Write([]byte(c.RspContents))
	for _, in := range c.Inputs {
		h.Write([]byte(in))
	}
	for _, out := range c.Outputs {
		h.Write([]byte(out))
	}
	var sum Signature
	copy(sum[:], h.Sum(nil))
	return sum
}
