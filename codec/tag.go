package codec

import (
	"github.com/arloliu/annex/format"
	"github.com/arloliu/annex/storage"
)

// Attribute names carrying a node's encoding tag.
const (
	attrEncodingType    = "encoding-type"
	attrEncodingVersion = "encoding-version"
)

// Encoding tags stamped by the built-in writers. Readers accept any prior
// version stored under the same tag name registered for it.
var (
	tagMapping         = format.NewTag("dict", "0.1.0")
	tagArray           = format.NewTag("array", "0.2.0")
	tagStringArray     = format.NewTag("string-array", "0.2.0")
	tagRecArray        = format.NewTag("rec-array", "0.2.0")
	tagCSR             = format.NewTag("csr_matrix", "0.1.0")
	tagCSC             = format.NewTag("csc_matrix", "0.1.0")
	tagTable           = format.NewTag("dataframe", "0.2.0")
	tagTableLegacy     = format.NewTag("dataframe", "0.1.0")
	tagCategorical     = format.NewTag("categorical", "0.2.0")
	tagNullableInteger = format.NewTag("nullable-integer", "0.1.0")
	tagNullableBoolean = format.NewTag("nullable-boolean", "0.1.0")
	tagNumericScalar   = format.NewTag("numeric-scalar", "0.2.0")
	tagString          = format.NewTag("string", "0.2.0")
	tagBytes           = format.NewTag("bytes", "0.2.0")
	tagContainer       = format.NewTag("anndata", "0.1.0")
	tagRaw             = format.NewTag("raw", "0.1.0")
)

// ReadTag reads a node's encoding tag, defaulting each attribute
// independently to the empty string. A node missing either attribute
// (malformed or fully untagged) normalizes to the ("", "") legacy sentinel
// for reader lookup; that is never an error by itself.
func ReadTag(n storage.Node) format.Tag {
	tag := format.NewTag(
		storage.AttrString(n.Attrs(), attrEncodingType, ""),
		storage.AttrString(n.Attrs(), attrEncodingVersion, ""),
	)
	if tag.Name == "" || tag.Version == "" {
		return format.Tag{}
	}

	return tag
}

// WriteTag stamps a node's encoding tag. It must be the last mutation of a
// written node: a partially-written node never appears fully tagged.
func WriteTag(n storage.Node, tag format.Tag) {
	n.Attrs().Set(attrEncodingType, tag.Name)
	n.Attrs().Set(attrEncodingVersion, tag.Version)
}
