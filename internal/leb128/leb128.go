// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package leb128 implements LEB128 integer encoding.
package leb128

import (
	"errors"
	"io"
)

var (
	errOverflow = errors.New("leb128: integer overflow")
)

// ReadVarUint32 tries to read a 32-bit unsigned integer from r.
func ReadVarUint32(r io.Reader) (uint32, error) {
	u, err := readVarUint(r, 32)
	return uint32(u), err
}

// ReadVarUint64 tries to read a 64-bit unsigned integer from r.
func ReadVarUint64(r io.Reader) (uint64, error) {
	return readVarUint(r, 64)
}

// ReadVarInt32 tries to read a 32-bit signed integer from r.
func ReadVarInt32(r io.Reader) (int32, error) {
	i, err := readVarInt(r, 32)
	return int32(i), err
}

// ReadVarInt64 tries to read a 64-bit signed integer from r.
func ReadVarInt64(r io.Reader) (int64, error) {
	return readVarInt(r, 64)
}

// WriteVarUint32 writes u to w.
func WriteVarUint32(w io.Writer, u uint32) error {
	return WriteVarUint64(w, uint64(u))
}

// WriteVarUint64 writes u to w.
func WriteVarUint64(w io.Writer, u uint64) error {
	var b []byte
	for {
		c := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if c&0x80 == 0 {
			break
		}
	}
	_, err := w.Write(b)
	return err
}

// WriteVarInt32 writes s to w.
func WriteVarInt32(w io.Writer, s int32) error {
	return WriteVarInt64(w, int64(s))
}

// WriteVarInt64 writes s to w.
func WriteVarInt64(w io.Writer, s int64) error {
	var b []byte
	for {
		c := byte(s & 0x7f)
		s >>= 7
		done := (s == 0 && c&0x40 == 0) || (s == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		b = append(b, c)
		if done {
			break
		}
	}
	_, err := w.Write(b)
	return err
}

func readVarUint(r io.Reader, bits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		c, err := readByte(r)
		if err != nil {
			return 0, err
		}
		if shift >= bits || (shift+7 > bits && uint64(c&0x7f)>>(bits-shift) != 0) {
			return 0, errOverflow
		}
		result |= uint64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			return result, nil
		}
	}
}

func readVarInt(r io.Reader, bits uint) (int64, error) {
	var result int64
	var shift uint
	var c byte
	for {
		var err error
		c, err = readByte(r)
		if err != nil {
			return 0, err
		}
		if shift >= bits {
			return 0, errOverflow
		}
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
	}
	if shift < 64 && c&0x40 != 0 {
		result |= -1 << shift
	}
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if result < lo || result > hi {
			return 0, errOverflow
		}
	}
	return result, nil
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
