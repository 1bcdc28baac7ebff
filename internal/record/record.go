package record

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/unicode/norm"
	"google.golang.org/protobuf/encoding/protowire"
)

// Facet tags are protocol constants shared with every consumer of published
// records. The enumeration is open and append-only: new facets get new tags,
// existing tags never change meaning.
const (
	TagTitle     uint32 = 0x344f4812
	TagBodyText  uint32 = 0x2d382044
	TagImage     uint32 = 0x045eee8c
	TagVideo     uint32 = 0x51108feb
	TagSourceURI uint32 = 0x6bdd4745
)

// Facet is one tagged payload inside a composite record.
type Facet struct {
	Tag     uint32
	Payload []byte
}

// MipmapLevel is one image pyramid entry as serialized into the image facet.
type MipmapLevel struct {
	SizeBytes uint64
	Digest    []byte
}

// VideoEncoding is one rendition entry as serialized into the video facet.
type VideoEncoding struct {
	Digest []byte
	Width  uint32
	Height uint32
}

// EncodeText serializes a text facet payload (title, body text, source URI).
// Text is NFC-normalized so visually identical strings serialize to the same
// bytes.
func EncodeText(text string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, norm.NFC.String(text))
	return b
}

// EncodeImage serializes the mipmap-level list into the image facet payload.
func EncodeImage(levels []MipmapLevel) []byte {
	var b []byte
	for _, level := range levels {
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.VarintType)
		sub = protowire.AppendVarint(sub, level.SizeBytes)
		sub = protowire.AppendTag(sub, 2, protowire.BytesType)
		sub = protowire.AppendBytes(sub, level.Digest)

		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return b
}

// EncodeVideo serializes the rendition list into the video facet payload.
func EncodeVideo(encodings []VideoEncoding) []byte {
	var b []byte
	for _, enc := range encodings {
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.BytesType)
		sub = protowire.AppendBytes(sub, enc.Digest)
		sub = protowire.AppendTag(sub, 2, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(enc.Width))
		sub = protowire.AppendTag(sub, 3, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(enc.Height))

		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return b
}

// Compose serializes the ordered facet list into the composite wire format
// and compresses the result. Facet order is preserved exactly; a facet with
// an empty payload is still written so consumers see every declared facet.
func Compose(facets []Facet) ([]byte, error) {
	if err := checkUniqueTags(facets); err != nil {
		return nil, err
	}

	var item []byte
	for _, facet := range facets {
		var sub []byte
		sub = protowire.AppendTag(sub, 1, protowire.VarintType)
		sub = protowire.AppendVarint(sub, uint64(facet.Tag))
		sub = protowire.AppendTag(sub, 2, protowire.BytesType)
		sub = protowire.AppendBytes(sub, facet.Payload)

		item = protowire.AppendTag(item, 1, protowire.BytesType)
		item = protowire.AppendBytes(item, sub)
	}

	var compressed bytes.Buffer
	writer := brotli.NewWriterLevel(&compressed, brotli.DefaultCompression)
	if _, err := writer.Write(item); err != nil {
		return nil, fmt.Errorf("compress record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compress record: %w", err)
	}
	return compressed.Bytes(), nil
}

// Decompose reverses Compose: decompress, then decode the ordered facet
// list. Used by tests and downstream readers of published records.
func Decompose(data []byte) ([]Facet, error) {
	item, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decompress record: %w", err)
	}

	var facets []Facet
	for len(item) > 0 {
		num, typ, n := protowire.ConsumeTag(item)
		if n < 0 {
			return nil, fmt.Errorf("decode record: %w", protowire.ParseError(n))
		}
		item = item[n:]
		if num != 1 || typ != protowire.BytesType {
			return nil, fmt.Errorf("decode record: unexpected field %d type %d", num, typ)
		}
		sub, n := protowire.ConsumeBytes(item)
		if n < 0 {
			return nil, fmt.Errorf("decode record: %w", protowire.ParseError(n))
		}
		item = item[n:]

		facet, err := decodeFacet(sub)
		if err != nil {
			return nil, err
		}
		facets = append(facets, facet)
	}
	return facets, nil
}

func decodeFacet(sub []byte) (Facet, error) {
	var facet Facet
	for len(sub) > 0 {
		num, typ, n := protowire.ConsumeTag(sub)
		if n < 0 {
			return Facet{}, fmt.Errorf("decode facet: %w", protowire.ParseError(n))
		}
		sub = sub[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			tag, n := protowire.ConsumeVarint(sub)
			if n < 0 {
				return Facet{}, fmt.Errorf("decode facet tag: %w", protowire.ParseError(n))
			}
			sub = sub[n:]
			facet.Tag = uint32(tag)
		case num == 2 && typ == protowire.BytesType:
			payload, n := protowire.ConsumeBytes(sub)
			if n < 0 {
				return Facet{}, fmt.Errorf("decode facet payload: %w", protowire.ParseError(n))
			}
			sub = sub[n:]
			facet.Payload = append([]byte(nil), payload...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, sub)
			if n < 0 {
				return Facet{}, fmt.Errorf("decode facet: %w", protowire.ParseError(n))
			}
			sub = sub[n:]
		}
	}
	if facet.Payload == nil {
		facet.Payload = []byte{}
	}
	return facet, nil
}

func checkUniqueTags(facets []Facet) error {
	seen := make(map[uint32]struct{}, len(facets))
	for _, facet := range facets {
		if _, dup := seen[facet.Tag]; dup {
			return fmt.Errorf("duplicate facet tag 0x%08x", facet.Tag)
		}
		seen[facet.Tag] = struct{}{}
	}
	return nil
}
