package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/greentheorystudio/openlayers/codec"
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// Snapshot container errors.
var (
	ErrInvalidSnapshot    = errors.New("source: invalid snapshot")
	ErrUnknownCompression = errors.New("source: unknown snapshot compression")
	ErrUnknownCodec       = errors.New("source: unknown snapshot codec")
	ErrSnapshotGeometry   = errors.New("source: snapshot requires point geometries")
)

// Compression names accepted by WithSnapshotCompression.
const (
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
	CompressionNone = "none"
)

var snapshotMagic = [4]byte{'O', 'L', 'V', 'S'}

const snapshotVersion = 1

// SnapshotOptions configure snapshot encoding. Decoding never needs them:
// the header records what was used.
type SnapshotOptions struct {
	Compression string
	Codec       codec.Codec
}

// SnapshotOption configures snapshot encoding.
type SnapshotOption func(*SnapshotOptions)

// WithSnapshotCompression selects the payload compression.
// Defaults to zstd.
func WithSnapshotCompression(name string) SnapshotOption {
	return func(o *SnapshotOptions) {
		o.Compression = name
	}
}

// WithSnapshotCodec selects the payload codec. Defaults to codec.Default.
func WithSnapshotCodec(c codec.Codec) SnapshotOption {
	return func(o *SnapshotOptions) {
		o.Codec = c
	}
}

// Snapshot payload documents. Number values are stored as raw IEEE 754 bits
// so NaN identifier sentinels survive the codec.
type snapshotValue struct {
	Kind uint8           `json:"k"`
	Bits uint64          `json:"f,omitempty"`
	Str  string          `json:"s,omitempty"`
	Bool bool            `json:"b,omitempty"`
	Arr  []snapshotValue `json:"a,omitempty"`
}

type snapshotFeature struct {
	X          float64                  `json:"x"`
	Y          float64                  `json:"y"`
	Attributes map[string]snapshotValue `json:"attributes,omitempty"`
}

type snapshotDoc struct {
	Features []snapshotFeature `json:"features"`
}

// SaveSnapshot writes the store's features to w in the snapshot container
// format. Only point features are supported; cluster member lists
// (feature-valued attributes) are not persisted and cause an error.
func (v *Vector) SaveSnapshot(w io.Writer, optFns ...SnapshotOption) error {
	opts := SnapshotOptions{
		Compression: CompressionZstd,
		Codec:       codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	switch opts.Compression {
	case CompressionZstd, CompressionLZ4, CompressionNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCompression, opts.Compression)
	}

	features := v.GetFeatures()
	doc := snapshotDoc{Features: make([]snapshotFeature, 0, len(features))}
	for _, f := range features {
		sf, err := encodeSnapshotFeature(f)
		if err != nil {
			return err
		}
		doc.Features = append(doc.Features, sf)
	}

	payload, err := opts.Codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("source: encode snapshot: %w", err)
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return err
	}
	if err := writeSnapshotString(w, opts.Compression); err != nil {
		return err
	}
	if err := writeSnapshotString(w, opts.Codec.Name()); err != nil {
		return err
	}

	switch opts.Compression {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		if _, err := lw.Write(payload); err != nil {
			lw.Close()
			return err
		}
		return lw.Close()
	default:
		_, err := w.Write(payload)
		return err
	}
}

// SaveSnapshotToFile writes a snapshot atomically: the file appears only
// once fully written.
func (v *Vector) SaveSnapshotToFile(path string, optFns ...SnapshotOption) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := v.SaveSnapshot(tmp, optFns...); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshot reads a snapshot container and returns its features. The
// compression and codec are taken from the header, so no options are needed.
func LoadSnapshot(r io.Reader) ([]*feature.Feature, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, version)
	}

	compression, err := readSnapshotString(r)
	if err != nil {
		return nil, err
	}
	codecName, err := readSnapshotString(r)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	var payload []byte
	switch compression {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		payload, err = io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
	case CompressionLZ4:
		payload, err = io.ReadAll(lz4.NewReader(r))
		if err != nil {
			return nil, err
		}
	case CompressionNone:
		payload, err = io.ReadAll(r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, compression)
	}

	var doc snapshotDoc
	if err := c.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	features := make([]*feature.Feature, 0, len(doc.Features))
	for _, sf := range doc.Features {
		attrs := make(feature.Attributes, len(sf.Attributes))
		for k, sv := range sf.Attributes {
			val, err := decodeSnapshotValue(sv)
			if err != nil {
				return nil, err
			}
			attrs[k] = val
		}
		features = append(features, feature.NewWithAttributes(geom.NewPoint(sf.X, sf.Y), attrs))
	}
	return features, nil
}

// LoadSnapshotFromFile reads a snapshot file.
func LoadSnapshotFromFile(path string) ([]*feature.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSnapshot(f)
}

func encodeSnapshotFeature(f *feature.Feature) (snapshotFeature, error) {
	p, ok := f.Geometry().(geom.Point)
	if !ok {
		return snapshotFeature{}, ErrSnapshotGeometry
	}

	sf := snapshotFeature{X: p.X, Y: p.Y}
	attrs := f.Attributes()
	if len(attrs) > 0 {
		sf.Attributes = make(map[string]snapshotValue, len(attrs))
		for k, val := range attrs {
			sv, err := encodeSnapshotValue(val)
			if err != nil {
				return snapshotFeature{}, fmt.Errorf("source: snapshot attribute %q: %w", k, err)
			}
			sf.Attributes[k] = sv
		}
	}
	return sf, nil
}

func encodeSnapshotValue(v feature.Value) (snapshotValue, error) {
	sv := snapshotValue{Kind: uint8(v.Kind)}
	switch v.Kind {
	case feature.KindAbsent, feature.KindNull:
	case feature.KindNumber:
		sv.Bits = math.Float64bits(v.F64)
	case feature.KindString:
		sv.Str = v.S
	case feature.KindBool:
		sv.Bool = v.B
	case feature.KindArray:
		sv.Arr = make([]snapshotValue, 0, len(v.A))
		for _, el := range v.A {
			se, err := encodeSnapshotValue(el)
			if err != nil {
				return snapshotValue{}, err
			}
			sv.Arr = append(sv.Arr, se)
		}
	case feature.KindFeatures:
		return snapshotValue{}, errors.New("feature-valued attributes are not persistable")
	default:
		return snapshotValue{}, fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return sv, nil
}

func decodeSnapshotValue(sv snapshotValue) (feature.Value, error) {
	switch feature.Kind(sv.Kind) {
	case feature.KindAbsent:
		return feature.Value{}, nil
	case feature.KindNull:
		return feature.Null(), nil
	case feature.KindNumber:
		return feature.Number(math.Float64frombits(sv.Bits)), nil
	case feature.KindString:
		return feature.String(sv.Str), nil
	case feature.KindBool:
		return feature.Bool(sv.Bool), nil
	case feature.KindArray:
		els := make([]feature.Value, 0, len(sv.Arr))
		for _, se := range sv.Arr {
			el, err := decodeSnapshotValue(se)
			if err != nil {
				return feature.Value{}, err
			}
			els = append(els, el)
		}
		return feature.Array(els), nil
	default:
		return feature.Value{}, fmt.Errorf("%w: unknown value kind %d", ErrInvalidSnapshot, sv.Kind)
	}
}

func writeSnapshotString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: header string too long", ErrInvalidSnapshot)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readSnapshotString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: short header", ErrInvalidSnapshot)
	}
	return string(buf), nil
}
