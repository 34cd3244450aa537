package pkglist

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// Compression selects how the serialized list is compressed. The value is
// stored as the first byte of every artifact.
type Compression byte

const (
	CompressionNone  Compression = 0x00
	CompressionFlate Compression = 0x01
	CompressionZstd  Compression = 0x02
)

// ParseCompression maps a configuration string to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "flate", "deflate":
		return CompressionFlate, nil
	case "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown compression %q (want flate, zstd or none)", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionFlate:
		return "flate"
	case CompressionZstd:
		return "zstd"
	}
	return "unknown"
}

const formatVersion = 1

type document struct {
	Version  int         `bson:"v"`
	Packages PackageList `bson:"packages"`
}

// Encode serializes and flate-compresses a list.
func Encode(l PackageList) ([]byte, error) {
	return EncodeWith(l, CompressionFlate)
}

// EncodeWith serializes l and compresses it with c. Decode reverses it
// exactly, whatever c was.
func EncodeWith(l PackageList, c Compression) ([]byte, error) {
	raw, err := bson.Marshal(document{Version: formatVersion, Packages: l})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "serialize package list")
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(c))

	switch c {
	case CompressionNone:
		buf.Write(raw)
	case CompressionFlate:
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEncode, err, "create flate writer")
		}
		if _, err := w.Write(raw); err != nil {
			return nil, errors.Wrap(errors.ErrCodeEncode, err, "compress package list")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeEncode, err, "compress package list")
		}
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEncode, err, "create zstd encoder")
		}
		buf.Write(enc.EncodeAll(raw, nil))
		_ = enc.Close()
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown compression 0x%02x", byte(c))
	}
	return buf.Bytes(), nil
}

// Decode reads an artifact produced by Encode or EncodeWith. An empty
// buffer fails with ErrCodeEmptyInput, anything else unreadable with
// ErrCodeDecode.
func Decode(data []byte) (PackageList, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "package list artifact is empty")
	}

	raw, err := decompress(Compression(data[0]), data[1:])
	if err != nil {
		return nil, err
	}

	var doc document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "deserialize package list")
	}
	if doc.Version != formatVersion {
		return nil, errors.New(errors.ErrCodeDecode, "unsupported artifact version %d", doc.Version)
	}
	return doc.Packages, nil
}

func decompress(c Compression, payload []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionFlate:
		r := flate.NewReader(bytes.NewReader(payload))
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decompress package list")
		}
		return raw, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "create zstd decoder")
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decompress package list")
		}
		return raw, nil
	}
	return nil, errors.New(errors.ErrCodeDecode, "unknown compression header 0x%02x", byte(c))
}
