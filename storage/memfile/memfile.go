// Package memfile implements the chunked-binary-file storage backend.
//
// The tree lives in memory but stores array payloads the way a chunked
// binary file would: split along axis 0 into fixed-size row chunks, each
// chunk independently compressed and protected by an xxHash64 checksum that
// is verified on read. Strings use a variable-length representation
// (uvarint length prefix), and scalar datasets reject compression.
//
// Ranged reads decode only the chunks overlapping the selection.
package memfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/annex/compress"
	"github.com/arloliu/annex/endian"
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/internal/chunkenc"
	"github.com/arloliu/annex/storage"
)

// DefaultChunkRows is the number of axis-0 rows per chunk when the caller
// does not set one.
const DefaultChunkRows = 1024

var engine = endian.GetLittleEndianEngine()

// File is an in-memory chunked-binary-file backend.
type File struct {
	root *group
}

// New creates an empty file with a root group at path "/".
func New() *File {
	return &File{root: newGroup("/")}
}

// Root returns the file's root group.
func (f *File) Root() storage.Group {
	return f.root
}

type group struct {
	path     string
	attrs    *storage.AttrMap
	order    []string
	children map[string]storage.Node
}

var _ storage.Group = (*group)(nil)

func newGroup(path string) *group {
	return &group{
		path:     path,
		attrs:    storage.NewAttrMap(),
		children: make(map[string]storage.Node),
	}
}

func (g *group) Backend() format.BackendKind { return format.BackendFile }
func (g *group) Kind() storage.NodeKind      { return storage.NodeGroup }
func (g *group) Path() string                { return g.path }
func (g *group) Attrs() storage.Attrs        { return g.attrs }

func (g *group) childPath(key string) string {
	if g.path == "/" {
		return "/" + key
	}

	return g.path + "/" + key
}

func (g *group) CreateGroup(key string) (storage.Group, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	child := newGroup(g.childPath(key))
	g.insert(key, child)

	return child, nil
}

func (g *group) CreateArray(key string, buf storage.Buffer, opts storage.CreateOptions) (storage.Array, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("create array %q: %w", key, err)
	}

	comp := opts.Compression
	if comp == 0 {
		comp = format.CompressionNone
	}
	if buf.IsScalar() && comp != format.CompressionNone {
		return nil, fmt.Errorf("create array %q: scalar datasets do not support compression", key)
	}
	codec, err := compress.GetCodec(comp)
	if err != nil {
		return nil, fmt.Errorf("create array %q: %w", key, err)
	}

	chunkRows := opts.ChunkRows
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}

	a := &array{
		path:      g.childPath(key),
		attrs:     storage.NewAttrMap(),
		dtype:     buf.Dtype,
		shape:     append([]int(nil), buf.Shape...),
		chunkRows: chunkRows,
		comp:      comp,
		resizable: append([]bool(nil), opts.Resizable...),
		meta:      chunkenc.MetaFor(buf, chunkenc.VarLen),
	}
	if err := a.appendChunks(codec, buf, buf.Rows()); err != nil {
		return nil, fmt.Errorf("create array %q: %w", key, err)
	}
	g.insert(key, a)

	return a, nil
}

func (g *group) Delete(key string) error {
	if _, ok := g.children[key]; !ok {
		return nil
	}
	delete(g.children, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	return nil
}

func (g *group) Has(key string) bool {
	_, ok := g.children[key]
	return ok
}

func (g *group) Child(key string) (storage.Node, bool) {
	n, ok := g.children[key]
	return n, ok
}

func (g *group) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)

	return out
}

func (g *group) insert(key string, n storage.Node) {
	if _, exists := g.children[key]; !exists {
		g.order = append(g.order, key)
	}
	g.children[key] = n
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty child key")
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("child key %q must not contain '/'", key)
	}

	return nil
}

type array struct {
	path      string
	attrs     *storage.AttrMap
	dtype     format.Dtype
	shape     []int
	chunkRows int
	comp      format.CompressionType
	resizable []bool
	meta      chunkenc.Meta

	chunks [][]byte // compressed chunk payloads
	sums   []uint64 // xxHash64 of each compressed payload
	starts []int    // axis-0 row offset of each chunk
	lens   []int    // row count of each chunk
}

var _ storage.Array = (*array)(nil)

func (a *array) Backend() format.BackendKind { return format.BackendFile }
func (a *array) Kind() storage.NodeKind      { return storage.NodeArray }
func (a *array) Path() string                { return a.path }
func (a *array) Attrs() storage.Attrs        { return a.attrs }
func (a *array) Dtype() format.Dtype         { return a.dtype }

func (a *array) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)

	return out
}

// Resizable reports which axes were marked growable at creation.
func (a *array) Resizable() []bool {
	out := make([]bool, len(a.resizable))
	copy(out, a.resizable)

	return out
}

// rows returns the axis-0 length; scalars count as one row.
func (a *array) rows() int {
	if len(a.shape) == 0 {
		return 1
	}

	return a.shape[0]
}

func (a *array) appendChunks(codec compress.Codec, buf storage.Buffer, rows int) error {
	// Appended rows start at a fresh chunk boundary, so chunk row counts
	// are not uniform. Record each chunk's offset and length explicitly.
	base := 0
	if n := len(a.lens); n > 0 {
		base = a.starts[n-1] + a.lens[n-1]
	}
	for start := 0; start < rows; start += a.chunkRows {
		stop := start + a.chunkRows
		if stop > rows {
			stop = rows
		}
		payload, err := chunkenc.EncodeRows(engine, buf, a.meta, start, stop)
		if err != nil {
			return err
		}
		compressed, err := codec.Compress(payload)
		if err != nil {
			return err
		}
		a.chunks = append(a.chunks, compressed)
		a.sums = append(a.sums, xxhash.Sum64(compressed))
		a.starts = append(a.starts, base+start)
		a.lens = append(a.lens, stop-start)
	}

	return nil
}

// Append grows the array along axis 0 with the rows of buf. The array must
// have been created with a resizable axis 0.
func (a *array) Append(buf storage.Buffer) error {
	if len(a.resizable) == 0 || !a.resizable[0] {
		return fmt.Errorf("append %s: axis 0 is not resizable", a.path)
	}
	if buf.Dtype != a.dtype {
		return fmt.Errorf("append %s: dtype %s does not match %s", a.path, buf.Dtype, a.dtype)
	}
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("append %s: %w", a.path, err)
	}

	codec, err := compress.GetCodec(a.comp)
	if err != nil {
		return err
	}
	if err := a.appendChunks(codec, buf, buf.Rows()); err != nil {
		return fmt.Errorf("append %s: %w", a.path, err)
	}
	a.shape[0] += buf.Rows()

	return nil
}

// chunkCount returns the number of stored chunks.
func (a *array) chunkCount() int { return len(a.chunks) }

// chunkRowsAt returns the row count of chunk i.
func (a *array) chunkRowsAt(i int) int {
	return a.lens[i]
}

// chunkFor returns the index of the chunk containing row pos.
func (a *array) chunkFor(pos int) int {
	return sort.SearchInts(a.starts, pos+1) - 1
}

// decodeChunk verifies and decodes chunk i into a flat column buffer.
func (a *array) decodeChunk(i int) (storage.Buffer, error) {
	if xxhash.Sum64(a.chunks[i]) != a.sums[i] {
		return storage.Buffer{}, fmt.Errorf("%s: chunk %d checksum mismatch", a.path, i)
	}
	codec, err := compress.GetCodec(a.comp)
	if err != nil {
		return storage.Buffer{}, err
	}
	payload, err := codec.Decompress(a.chunks[i])
	if err != nil {
		return storage.Buffer{}, fmt.Errorf("%s: chunk %d: %w", a.path, i, err)
	}

	return chunkenc.DecodeRows(engine, payload, a.meta, a.chunkRowsAt(i))
}

func (a *array) Read() (storage.Buffer, error) {
	parts := make([]storage.Buffer, 0, a.chunkCount())
	for i := 0; i < a.chunkCount(); i++ {
		part, err := a.decodeChunk(i)
		if err != nil {
			return storage.Buffer{}, err
		}
		parts = append(parts, part)
	}

	return a.assemble(chunkenc.Concat(a.meta, parts), a.rows()), nil
}

// assemble restores the array shape on a flat column buffer of selRows rows.
func (a *array) assemble(flat storage.Buffer, selRows int) storage.Buffer {
	flat.Dtype = a.dtype
	if len(a.shape) == 0 {
		flat.Shape = nil

		return flat
	}
	shape := make([]int, len(a.shape))
	copy(shape, a.shape)
	shape[0] = selRows
	flat.Shape = shape

	return flat
}

func (a *array) ReadRange(specs ...index.Spec) (storage.Buffer, error) {
	if len(specs) == 0 {
		return a.Read()
	}
	if len(a.shape) == 0 {
		for _, s := range specs {
			if !s.IsAll() {
				return storage.Buffer{}, fmt.Errorf("%s: cannot slice a scalar dataset", a.path)
			}
		}

		return a.Read()
	}

	rowSpec := specs[0]
	if err := rowSpec.Validate(a.shape[0]); err != nil {
		return storage.Buffer{}, fmt.Errorf("%s: axis 0: %w", a.path, err)
	}

	flat, selRows, err := a.readRows(rowSpec)
	if err != nil {
		return storage.Buffer{}, err
	}

	out := a.assemble(flat, selRows)
	rest := make([]index.Spec, len(specs))
	rest[0] = index.All()
	copy(rest[1:], specs[1:])

	return out.Slice(rest...)
}

// readRows gathers the selected axis-0 rows, decoding only the chunks that
// overlap the selection.
func (a *array) readRows(rowSpec index.Spec) (storage.Buffer, int, error) {
	if rowSpec.IsAll() {
		parts := make([]storage.Buffer, 0, a.chunkCount())
		for i := 0; i < a.chunkCount(); i++ {
			part, err := a.decodeChunk(i)
			if err != nil {
				return storage.Buffer{}, 0, err
			}
			parts = append(parts, part)
		}

		return chunkenc.Concat(a.meta, parts), a.rows(), nil
	}

	if rowSpec.Kind() == index.KindRange {
		start, stop := rowSpec.Bounds(a.rows())
		var parts []storage.Buffer
		for i := max(a.chunkFor(start), 0); i < a.chunkCount() && a.starts[i] < stop; i++ {
			part, err := a.decodeChunk(i)
			if err != nil {
				return storage.Buffer{}, 0, err
			}
			chunkStart := a.starts[i]
			lo := max(start-chunkStart, 0)
			hi := min(stop-chunkStart, a.chunkRowsAt(i))
			sliced, err := a.slicePart(part, i, index.Range(lo, hi))
			if err != nil {
				return storage.Buffer{}, 0, err
			}
			parts = append(parts, sliced)
		}

		return chunkenc.Concat(a.meta, parts), stop - start, nil
	}

	// Point selection: decode each needed chunk once, then gather rows in
	// the requested order.
	positions := rowSpec.Positions(a.rows())
	decoded := make(map[int]storage.Buffer)
	parts := make([]storage.Buffer, 0, len(positions))
	for _, pos := range positions {
		ci := a.chunkFor(pos)
		part, ok := decoded[ci]
		if !ok {
			var err error
			part, err = a.decodeChunk(ci)
			if err != nil {
				return storage.Buffer{}, 0, err
			}
			decoded[ci] = part
		}
		row, err := a.slicePart(part, ci, index.Points(pos-a.starts[ci]))
		if err != nil {
			return storage.Buffer{}, 0, err
		}
		parts = append(parts, row)
	}

	return chunkenc.Concat(a.meta, parts), len(positions), nil
}

// slicePart applies a row selection to a decoded chunk column.
func (a *array) slicePart(part storage.Buffer, chunkIdx int, spec index.Spec) (storage.Buffer, error) {
	nRows := a.chunkRowsAt(chunkIdx)
	if a.dtype != format.DtypeRecord {
		// Columns decode flat; view them as (rows, rowElems) for slicing.
		part.Shape = []int{nRows, a.meta.RowElems}
	}

	return part.Slice(spec)
}
