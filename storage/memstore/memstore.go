// Package memstore implements the cloud array-store storage backend.
//
// Unlike the chunked-binary-file backend, the store keeps no file image:
// every chunk is an independent object in a flat key space, addressed as
// "<array path>/chunks/<n>". Strings are stored fixed-length, padded with
// zero bytes to the widest value and trimmed on read. The store relies on
// object integrity from the transport, so chunks carry no checksums, and
// scalars accept compression like any other dataset.
package memstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arloliu/annex/compress"
	"github.com/arloliu/annex/endian"
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/index"
	"github.com/arloliu/annex/internal/chunkenc"
	"github.com/arloliu/annex/storage"
)

// DefaultChunkRows is the number of axis-0 rows per chunk object when the
// caller does not set one.
const DefaultChunkRows = 1024

var engine = endian.GetLittleEndianEngine()

// Store is an in-memory flat object store with a hierarchical metadata view.
type Store struct {
	root    *group
	objects map[string][]byte
}

// New creates an empty store with a root group at path "/".
func New() *Store {
	s := &Store{objects: make(map[string][]byte)}
	s.root = newGroup(s, "/")

	return s
}

// Root returns the store's root group.
func (s *Store) Root() storage.Group {
	return s.root
}

// ObjectKeys returns the keys of all stored chunk objects, in no particular
// order.
func (s *Store) ObjectKeys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}

	return keys
}

func (s *Store) deletePrefix(prefix string) {
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
		}
	}
}

type group struct {
	store    *Store
	path     string
	attrs    *storage.AttrMap
	order    []string
	children map[string]storage.Node
}

var _ storage.Group = (*group)(nil)

func newGroup(s *Store, path string) *group {
	return &group{
		store:    s,
		path:     path,
		attrs:    storage.NewAttrMap(),
		children: make(map[string]storage.Node),
	}
}

func (g *group) Backend() format.BackendKind { return format.BackendStore }
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
	child := newGroup(g.store, g.childPath(key))
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
	codec, err := compress.GetCodec(comp)
	if err != nil {
		return nil, fmt.Errorf("create array %q: %w", key, err)
	}

	chunkRows := opts.ChunkRows
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}

	a := &array{
		store:     g.store,
		path:      g.childPath(key),
		attrs:     storage.NewAttrMap(),
		dtype:     buf.Dtype,
		shape:     append([]int(nil), buf.Shape...),
		chunkRows: chunkRows,
		comp:      comp,
		resizable: append([]bool(nil), opts.Resizable...),
		meta:      chunkenc.MetaFor(buf, chunkenc.FixedLen),
	}
	// Replacing an array under the same path must not leave stale chunk
	// objects behind.
	g.store.deletePrefix(a.path + "/chunks/")
	if err := a.putChunks(codec, buf, buf.Rows()); err != nil {
		return nil, fmt.Errorf("create array %q: %w", key, err)
	}
	g.insert(key, a)

	return a, nil
}

func (g *group) Delete(key string) error {
	child, ok := g.children[key]
	if !ok {
		return nil
	}
	g.store.deletePrefix(child.Path() + "/")
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
	store     *Store
	path      string
	attrs     *storage.AttrMap
	dtype     format.Dtype
	shape     []int
	chunkRows int
	comp      format.CompressionType
	resizable []bool
	meta      chunkenc.Meta
	nChunks   int
	starts    []int // axis-0 row offset of each chunk object
	lens      []int // row count of each chunk object
}

var _ storage.Array = (*array)(nil)

func (a *array) Backend() format.BackendKind { return format.BackendStore }
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

func (a *array) chunkKey(i int) string {
	return a.path + "/chunks/" + strconv.Itoa(i)
}

func (a *array) rows() int {
	if len(a.shape) == 0 {
		return 1
	}

	return a.shape[0]
}

func (a *array) chunkRowsAt(i int) int {
	return a.lens[i]
}

// chunkFor returns the index of the chunk object containing row pos.
func (a *array) chunkFor(pos int) int {
	return sort.SearchInts(a.starts, pos+1) - 1
}

func (a *array) putChunks(codec compress.Codec, buf storage.Buffer, rows int) error {
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
		a.store.objects[a.chunkKey(a.nChunks)] = compressed
		a.nChunks++
		a.starts = append(a.starts, base+start)
		a.lens = append(a.lens, stop-start)
	}

	return nil
}

// Append grows the array along axis 0 with the rows of buf. The array must
// have been created with a resizable axis 0. Appended strings must fit the
// fixed byte width recorded at creation.
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
	if err := a.putChunks(codec, buf, buf.Rows()); err != nil {
		return fmt.Errorf("append %s: %w", a.path, err)
	}
	a.shape[0] += buf.Rows()

	return nil
}

func (a *array) decodeChunk(i int) (storage.Buffer, error) {
	obj, ok := a.store.objects[a.chunkKey(i)]
	if !ok {
		return storage.Buffer{}, fmt.Errorf("%s: chunk object %d missing", a.path, i)
	}
	codec, err := compress.GetCodec(a.comp)
	if err != nil {
		return storage.Buffer{}, err
	}
	payload, err := codec.Decompress(obj)
	if err != nil {
		return storage.Buffer{}, fmt.Errorf("%s: chunk %d: %w", a.path, i, err)
	}

	return chunkenc.DecodeRows(engine, payload, a.meta, a.chunkRowsAt(i))
}

func (a *array) Read() (storage.Buffer, error) {
	parts := make([]storage.Buffer, 0, a.nChunks)
	for i := 0; i < a.nChunks; i++ {
		part, err := a.decodeChunk(i)
		if err != nil {
			return storage.Buffer{}, err
		}
		parts = append(parts, part)
	}

	return a.assemble(chunkenc.Concat(a.meta, parts), a.rows()), nil
}

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

// readRows gathers the selected axis-0 rows, fetching only the chunk
// objects that overlap the selection.
func (a *array) readRows(rowSpec index.Spec) (storage.Buffer, int, error) {
	if rowSpec.IsAll() {
		parts := make([]storage.Buffer, 0, a.nChunks)
		for i := 0; i < a.nChunks; i++ {
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
		for i := max(a.chunkFor(start), 0); i < a.nChunks && a.starts[i] < stop; i++ {
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

func (a *array) slicePart(part storage.Buffer, chunkIdx int, spec index.Spec) (storage.Buffer, error) {
	nRows := a.chunkRowsAt(chunkIdx)
	if a.dtype != format.DtypeRecord {
		part.Shape = []int{nRows, a.meta.RowElems}
	}

	return part.Slice(spec)
}
