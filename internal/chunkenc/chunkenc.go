// Package chunkenc serializes buffer rows into chunk payloads and back.
//
// Backends split an array along axis 0 into fixed-size row chunks and store
// each chunk independently. This package defines the binary layout of one
// chunk: fixed-width little/big-endian numerics, and one of two string
// representations selected by the backend (variable-length uvarint-prefixed,
// or fixed-length zero-padded). Record chunks are laid out field-major.
package chunkenc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/annex/endian"
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/internal/pool"
	"github.com/arloliu/annex/storage"
)

type StringMode uint8

const (
	// VarLen encodes each string as [length:uvarint][bytes:UTF-8].
	VarLen StringMode = 0x1
	// FixedLen pads every string to a fixed byte width with zero bytes;
	// trailing zero bytes are stripped on decode.
	FixedLen StringMode = 0x2
)

// FieldMeta describes one record field's layout within a chunk.
type FieldMeta struct {
	Name  string
	Dtype format.Dtype
	Width int // fixed-mode string byte width
}

// Meta is the per-array layout needed to decode chunks. It is computed once
// at write time and kept in the array node's metadata, not per chunk.
type Meta struct {
	Dtype    format.Dtype
	RowElems int // elements per axis-0 row
	Mode     StringMode
	Width    int // fixed-mode string byte width (non-record arrays)
	Fields   []FieldMeta
}

// MetaFor computes the chunk layout for a buffer under the given string
// mode. For FixedLen the widths cover the widest string in the whole buffer.
func MetaFor(buf storage.Buffer, mode StringMode) Meta {
	m := Meta{Dtype: buf.Dtype, Mode: mode, RowElems: 1}
	if len(buf.Shape) > 0 {
		for _, d := range buf.Shape[1:] {
			m.RowElems *= d
		}
	}

	if mode == FixedLen {
		if buf.Dtype == format.DtypeString {
			m.Width = maxWidth(buf.Strings)
		}
	}
	if buf.Dtype == format.DtypeRecord {
		m.Fields = make([]FieldMeta, len(buf.Fields))
		for i, f := range buf.Fields {
			fm := FieldMeta{Name: f.Name, Dtype: f.Buffer.Dtype}
			if mode == FixedLen && f.Buffer.Dtype == format.DtypeString {
				fm.Width = maxWidth(f.Buffer.Strings)
			}
			m.Fields[i] = fm
		}
	}

	return m
}

func maxWidth(strs []string) int {
	w := 0
	for _, s := range strs {
		if len(s) > w {
			w = len(s)
		}
	}

	return w
}

// EncodeRows serializes rows [start, stop) of buf into a fresh byte slice.
func EncodeRows(engine endian.EndianEngine, buf storage.Buffer, meta Meta, start, stop int) ([]byte, error) {
	bb := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(bb)

	var err error
	if buf.Dtype == format.DtypeRecord {
		// Field-major layout: all rows of field 0, then field 1, ...
		for i, f := range buf.Fields {
			fieldMeta := Meta{Dtype: f.Buffer.Dtype, RowElems: 1, Mode: meta.Mode, Width: meta.Fields[i].Width}
			if err = encodeColumn(engine, bb, f.Buffer, fieldMeta, start, stop); err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	} else {
		err = encodeColumn(engine, bb, buf, meta, start, stop)
	}
	if err != nil {
		return nil, err
	}

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())

	return out, nil
}

func encodeColumn(engine endian.EndianEngine, bb *pool.ByteBuffer, buf storage.Buffer, meta Meta, start, stop int) error {
	lo, hi := start*meta.RowElems, stop*meta.RowElems

	switch buf.Dtype {
	case format.DtypeFloat32:
		for _, v := range buf.Float32s[lo:hi] {
			bb.B = engine.AppendUint32(bb.B, math.Float32bits(v))
		}
	case format.DtypeFloat64:
		for _, v := range buf.Float64s[lo:hi] {
			bb.B = engine.AppendUint64(bb.B, math.Float64bits(v))
		}
	case format.DtypeInt32:
		for _, v := range buf.Int32s[lo:hi] {
			bb.B = engine.AppendUint32(bb.B, uint32(v))
		}
	case format.DtypeInt64:
		for _, v := range buf.Int64s[lo:hi] {
			bb.B = engine.AppendUint64(bb.B, uint64(v))
		}
	case format.DtypeBool:
		for _, v := range buf.Bools[lo:hi] {
			if v {
				bb.MustWrite([]byte{1})
			} else {
				bb.MustWrite([]byte{0})
			}
		}
	case format.DtypeString:
		for _, s := range buf.Strings[lo:hi] {
			if err := appendString(bb, s, meta); err != nil {
				return err
			}
		}
	case format.DtypeBytes:
		bb.B = binary.AppendUvarint(bb.B, uint64(len(buf.Raw)))
		bb.MustWrite(buf.Raw)
	default:
		return fmt.Errorf("unsupported chunk dtype %s", buf.Dtype)
	}

	return nil
}

func appendString(bb *pool.ByteBuffer, s string, meta Meta) error {
	switch meta.Mode {
	case VarLen:
		bb.B = binary.AppendUvarint(bb.B, uint64(len(s)))
		bb.MustWrite([]byte(s))
	case FixedLen:
		if len(s) > meta.Width {
			return fmt.Errorf("string of %d bytes exceeds fixed width %d", len(s), meta.Width)
		}
		bb.MustWrite([]byte(s))
		for i := len(s); i < meta.Width; i++ {
			bb.MustWrite([]byte{0})
		}
	default:
		return fmt.Errorf("unknown string mode %d", meta.Mode)
	}

	return nil
}

// DecodeRows deserializes a chunk payload of nRows rows back into a buffer.
// The returned buffer is 1-D per row-element; shape reassembly is the
// caller's concern.
func DecodeRows(engine endian.EndianEngine, data []byte, meta Meta, nRows int) (storage.Buffer, error) {
	if meta.Dtype == format.DtypeRecord {
		buf := storage.Buffer{Dtype: format.DtypeRecord, Shape: []int{nRows}}
		offset := 0
		for _, fm := range meta.Fields {
			fieldMeta := Meta{Dtype: fm.Dtype, RowElems: 1, Mode: meta.Mode, Width: fm.Width}
			col, n, err := decodeColumn(engine, data[offset:], fieldMeta, nRows)
			if err != nil {
				return storage.Buffer{}, fmt.Errorf("field %q: %w", fm.Name, err)
			}
			offset += n
			buf.Fields = append(buf.Fields, storage.Field{Name: fm.Name, Buffer: col})
		}

		return buf, nil
	}

	buf, _, err := decodeColumn(engine, data, meta, nRows)

	return buf, err
}

func decodeColumn(engine endian.EndianEngine, data []byte, meta Meta, nRows int) (storage.Buffer, int, error) {
	count := nRows * meta.RowElems
	buf := storage.Buffer{Dtype: meta.Dtype, Shape: []int{count}}
	offset := 0

	switch meta.Dtype {
	case format.DtypeFloat32:
		if len(data) < count*4 {
			return buf, 0, fmt.Errorf("chunk truncated: need %d bytes, have %d", count*4, len(data))
		}
		buf.Float32s = make([]float32, count)
		for i := range buf.Float32s {
			buf.Float32s[i] = math.Float32frombits(engine.Uint32(data[offset:]))
			offset += 4
		}
	case format.DtypeFloat64:
		if len(data) < count*8 {
			return buf, 0, fmt.Errorf("chunk truncated: need %d bytes, have %d", count*8, len(data))
		}
		buf.Float64s = make([]float64, count)
		for i := range buf.Float64s {
			buf.Float64s[i] = math.Float64frombits(engine.Uint64(data[offset:]))
			offset += 8
		}
	case format.DtypeInt32:
		if len(data) < count*4 {
			return buf, 0, fmt.Errorf("chunk truncated: need %d bytes, have %d", count*4, len(data))
		}
		buf.Int32s = make([]int32, count)
		for i := range buf.Int32s {
			buf.Int32s[i] = int32(engine.Uint32(data[offset:]))
			offset += 4
		}
	case format.DtypeInt64:
		if len(data) < count*8 {
			return buf, 0, fmt.Errorf("chunk truncated: need %d bytes, have %d", count*8, len(data))
		}
		buf.Int64s = make([]int64, count)
		for i := range buf.Int64s {
			buf.Int64s[i] = int64(engine.Uint64(data[offset:]))
			offset += 8
		}
	case format.DtypeBool:
		if len(data) < count {
			return buf, 0, fmt.Errorf("chunk truncated: need %d bytes, have %d", count, len(data))
		}
		buf.Bools = make([]bool, count)
		for i := range buf.Bools {
			buf.Bools[i] = data[offset] != 0
			offset++
		}
	case format.DtypeString:
		buf.Strings = make([]string, count)
		for i := range buf.Strings {
			s, n, err := decodeString(data[offset:], meta)
			if err != nil {
				return buf, 0, err
			}
			buf.Strings[i] = s
			offset += n
		}
	case format.DtypeBytes:
		length, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data)-n) < length {
			return buf, 0, fmt.Errorf("corrupted bytes payload")
		}
		buf.Raw = make([]byte, length)
		copy(buf.Raw, data[n:n+int(length)])
		buf.Shape = nil
		offset = n + int(length)
	default:
		return buf, 0, fmt.Errorf("unsupported chunk dtype %s", meta.Dtype)
	}

	return buf, offset, nil
}

// Concat joins decoded chunk columns along axis 0. Parts must share the
// layout described by meta; the result is flat, shape reassembly is the
// caller's concern.
func Concat(meta Meta, parts []storage.Buffer) storage.Buffer {
	out := storage.Buffer{Dtype: meta.Dtype}
	total := 0

	if meta.Dtype == format.DtypeRecord {
		for i, fm := range meta.Fields {
			col := storage.Buffer{Dtype: fm.Dtype}
			for _, p := range parts {
				col = appendColumn(col, p.Fields[i].Buffer)
			}
			col.Shape = []int{col.DataLen()}
			out.Fields = append(out.Fields, storage.Field{Name: fm.Name, Buffer: col})
		}
		if len(out.Fields) > 0 {
			total = out.Fields[0].Buffer.Len()
		}
		out.Shape = []int{total}

		return out
	}

	for _, p := range parts {
		out = appendColumn(out, p)
	}
	out.Shape = []int{out.DataLen()}

	return out
}

func appendColumn(dst, src storage.Buffer) storage.Buffer {
	dst.Float32s = append(dst.Float32s, src.Float32s...)
	dst.Float64s = append(dst.Float64s, src.Float64s...)
	dst.Int32s = append(dst.Int32s, src.Int32s...)
	dst.Int64s = append(dst.Int64s, src.Int64s...)
	dst.Bools = append(dst.Bools, src.Bools...)
	dst.Strings = append(dst.Strings, src.Strings...)
	dst.Raw = append(dst.Raw, src.Raw...)

	return dst
}

func decodeString(data []byte, meta Meta) (string, int, error) {
	switch meta.Mode {
	case VarLen:
		length, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data)-n) < length {
			return "", 0, fmt.Errorf("corrupted var-length string")
		}

		return string(data[n : n+int(length)]), n + int(length), nil
	case FixedLen:
		if len(data) < meta.Width {
			return "", 0, fmt.Errorf("corrupted fixed-length string")
		}
		raw := data[:meta.Width]
		end := len(raw)
		for end > 0 && raw[end-1] == 0 {
			end--
		}

		return string(raw[:end]), meta.Width, nil
	default:
		return "", 0, fmt.Errorf("unknown string mode %d", meta.Mode)
	}
}
