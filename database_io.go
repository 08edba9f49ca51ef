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
	"bytes"
	"encoding/binary"
	"fmt"
)

// dbHeader is the fixed 16-byte prologue of both side-car database files.
// A byte-for-byte mismatch (wrong magic, bumped version) means the file
// belongs to a different format and must be discarded, not partially read.
type dbHeader struct {
	Magic   uint32
	Version uint32
	Str     [8]byte
}

var referenceHeader = dbHeader{
	Magic:   0x626c6468, // 'bldh', little-endian byte order of the literal
	Version: 4,
	Str:     [8]byte{'b', 'u', 'i', 'l', 'd', 'd', 'b', 0},
}

func writeHeader(w *bytes.Buffer) {
	binary.Write(w, binary.LittleEndian, referenceHeader)
}

func writeString(w *bytes.Buffer, s string) {
	w.WriteString(s)
	w.WriteByte(0)
}

func writeUint(w *bytes.Buffer, v uint32) {
	binary.Write(w, binary.LittleEndian, v)
}

func writeSignatureBytes(w *bytes.Buffer, s Signature) {
	w.Write(s[:])
}

func writeStringList(w *bytes.Buffer, list []string) {
	writeUint(w, uint32(len(list)))
	for _, item := range list {
		writeString(w, item)
	}
}

func writeIdList(w *bytes.Buffer, list []CommandId) {
	writeUint(w, uint32(len(list)))
	for _, id := range list {
		writeUint(w, id)
	}
}

func writeDepFile(w *bytes.Buffer, d DepFile) {
	writeString(w, d.Path)
	if d.Path != "" {
		writeUint(w, uint32(d.Format))
	}
}

// decoder reads sequentially from an in-memory buffer, advancing pos as it
// goes. Every read that would run past the end of data returns an error
// instead of panicking: a corrupted or truncated database file must be
// discardable, not fatal.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("reading past the end of input")
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readHeader() error {
	b, err := d.bytes(16)
	if err != nil {
		return err
	}
	var got dbHeader
	got.Magic = binary.LittleEndian.Uint32(b[0:4])
	got.Version = binary.LittleEndian.Uint32(b[4:8])
	copy(got.Str[:], b[8:16])
	if got != referenceHeader {
		return fmt.Errorf("mismatching header")
	}
	return nil
}

func (d *decoder) readString() (string, error) {
	idx := bytes.IndexByte(d.data[d.pos:], 0)
	if idx < 0 {
		return "", fmt.Errorf("failed to find end of string in input")
	}
	s := string(d.data[d.pos : d.pos+idx])
	d.pos += idx + 1
	return s, nil
}

func (d *decoder) readUint() (uint32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) readSignature() (Signature, error) {
	b, err := d.bytes(len(Signature{}))
	if err != nil {
		return Signature{}, err
	}
	var s Signature
	copy(s[:], b)
	return s, nil
}

func (d *decoder) readStringList() ([]string, error) {
	n, err := d.readUint()
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func (d *decoder) readIdList() ([]CommandId, error) {
	n, err := d.readUint()
	if err != nil {
		return nil, err
	}
	result := make([]CommandId, n)
	for i := uint32(0); i < n; i++ {
		id, err := d.readUint()
		if err != nil {
			return nil, err
		}
		result[i] = id
	}
	return result, nil
}

func (d *decoder) readDepFile() (DepFile, error) {
	path, err := d.readString()
	if err != nil {
		return DepFile{}, err
	}
	result := DepFile{Path: path}
	if path != "" {
		format, err := d.readUint()
		if err != nil {
			return DepFile{}, err
		}
		switch DepFileFormat(format) {
		case DepFileFormatGCC:
			result.Format = DepFileFormatGCC
		case DepFileFormatMSVC:
			result.Format = DepFileFormatMSVC
		default:
			return DepFile{}, fmt.Errorf("unknown depfile format type for %s", path)
		}
	}
	return result, nil
}
