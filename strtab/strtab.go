// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package strtab implements the interned string used throughout the
// compiler: a (hash, length, bytes) triple owned by the arena, compared
// hash-then-bytes, and canonicalised by a per-compilation intern table so
// that equal spellings compare equal by identity.
package strtab

import (
	"hash/maphash"

	"github.com/paanil/mug/arena"
)

// Str is the interned string triple. Zero value is the empty string.
type Str struct {
	Hash  uint64
	Len   int32
	Bytes []byte
}

func (s Str) String() string {
	return string(s.Bytes)
}

// Equal compares hash first, then length, then bytes — mirroring how the
// original implementation short-circuits on a hash mismatch before ever
// touching the backing bytes.
func (s Str) Equal(o Str) bool {
	if s.Hash != o.Hash {
		return false
	}
	if s.Len != o.Len {
		return false
	}
	for i := range s.Bytes {
		if s.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

var seed = maphash.MakeSeed()

func computeHash(b []byte) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(b)
	return h.Sum64()
}

// Table interns strings for the lifetime of one compilation. Every byte
// slice it returns is arena-owned and never moves, so a Str's Bytes field
// can be held onto for as long as the arena lives.
type Table struct {
	a       *arena.Alloc
	entries map[string]Str
}

func New(a *arena.Alloc) *Table {
	return &Table{a: a, entries: make(map[string]Str)}
}

// Intern returns the canonical Str for s, copying s into the arena the
// first time it is seen. Two calls with equal content return Strs whose
// Bytes slices share the same backing array.
func (t *Table) Intern(s string) Str {
	if existing, ok := t.entries[s]; ok {
		return existing
	}

	buf := arena.NewSlice[byte](t.a, len(s))
	copy(buf, s)

	str := Str{
		Hash:  computeHash(buf),
		Len:   int32(len(s)),
		Bytes: buf,
	}
	t.entries[s] = str
	return str
}

// Len reports how many distinct strings have been interned so far.
func (t *Table) Len() int {
	return len(t.entries)
}
