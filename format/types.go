// Package format defines the wire-level identity types shared by the codec
// layer and the storage backends: encoding tags, backend kinds, dtypes,
// element kinds and compression types.
package format

import "fmt"

// Tag identifies the encoding scheme of a stored node as a (name, version)
// pair, independent of the in-memory value's concrete type.
//
// The zero value ("", "") is reserved: it marks untagged legacy data and
// triggers structural inference on read.
type Tag struct {
	Name    string
	Version string
}

// NewTag creates a Tag from an encoding name and version.
func NewTag(name, version string) Tag {
	return Tag{Name: name, Version: version}
}

// IsZero reports whether the tag is the reserved untagged/legacy sentinel.
func (t Tag) IsZero() bool {
	return t.Name == "" && t.Version == ""
}

// String returns "name/version", or "<untagged>" for the legacy sentinel.
func (t Tag) String() string {
	if t.IsZero() {
		return "<untagged>"
	}

	return t.Name + "/" + t.Version
}

type (
	BackendKind     uint8
	CompressionType uint8
	Dtype           uint8
	ElemKind        uint8
)

const (
	// BackendFile is the chunked-binary-file backend kind.
	BackendFile BackendKind = 0x1
	// BackendStore is the chunked-cloud/array-store backend kind.
	BackendStore BackendKind = 0x2

	CompressionNone   CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd   CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2     CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4    CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionSnappy CompressionType = 0x5 // CompressionSnappy represents Snappy compression.
)

// Dtypes describe the element type of an array buffer. The set is closed:
// the codec targets a fixed set of known shapes, not arbitrary objects.
const (
	DtypeInvalid Dtype = iota
	DtypeFloat32
	DtypeFloat64
	DtypeInt32
	DtypeInt64
	DtypeBool
	DtypeString
	DtypeBytes
	DtypeRecord
)

// Element kinds refine writer dispatch: the coarse category of an array's
// contained values. ElemNone is the bare, unrefined key.
const (
	ElemNone ElemKind = iota
	ElemNumeric
	ElemText
	ElemRecord
	ElemBytes
)

func (b BackendKind) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendStore:
		return "store"
	default:
		return "unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionSnappy:
		return "Snappy"
	default:
		return "Unknown"
	}
}

func (d Dtype) String() string {
	switch d {
	case DtypeFloat32:
		return "float32"
	case DtypeFloat64:
		return "float64"
	case DtypeInt32:
		return "int32"
	case DtypeInt64:
		return "int64"
	case DtypeBool:
		return "bool"
	case DtypeString:
		return "string"
	case DtypeBytes:
		return "bytes"
	case DtypeRecord:
		return "record"
	default:
		return "invalid"
	}
}

func (e ElemKind) String() string {
	switch e {
	case ElemNone:
		return "none"
	case ElemNumeric:
		return "numeric"
	case ElemText:
		return "text"
	case ElemRecord:
		return "record"
	case ElemBytes:
		return "bytes"
	default:
		return fmt.Sprintf("elemkind(%d)", uint8(e))
	}
}

// IsNumeric reports whether the dtype is a fixed-width numeric or boolean
// type. Boolean counts as numeric for scalar dispatch, matching the
// numeric-scalar encoding.
func (d Dtype) IsNumeric() bool {
	switch d {
	case DtypeFloat32, DtypeFloat64, DtypeInt32, DtypeInt64, DtypeBool:
		return true
	default:
		return false
	}
}

// Elem returns the element kind used to refine writer dispatch for arrays
// of this dtype.
func (d Dtype) Elem() ElemKind {
	switch d {
	case DtypeString:
		return ElemText
	case DtypeBytes:
		return ElemBytes
	case DtypeRecord:
		return ElemRecord
	case DtypeFloat32, DtypeFloat64, DtypeInt32, DtypeInt64, DtypeBool:
		return ElemNumeric
	default:
		return ElemNone
	}
}
