package table

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/tablespace/blobstore"
	"github.com/hupe1980/tablespace/codec"
	"github.com/hupe1980/tablespace/internal/hash"
)

const (
	magic         = "TSPC"
	formatVersion = 1
	// magic, version, kind, compression, codec-name-len
	fixedHeaderSize = len(magic) + 4
)

type fileOptions struct {
	codec       codec.Codec
	compression Compression
	wrapReader  func(io.Reader) io.Reader
	wrapWriter  func(io.Writer) io.Writer
}

// FileOption configures Encode, Save and Load.
type FileOption func(*fileOptions)

// WithCodec sets the payload codec for written files. Defaults to codec.Default.
func WithCodec(c codec.Codec) FileOption {
	return func(o *fileOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression sets the payload compression for written files.
func WithCompression(c Compression) FileOption {
	return func(o *fileOptions) {
		o.compression = c
	}
}

// WithReaderWrapper wraps the stream Load reads from, e.g. to throttle it.
func WithReaderWrapper(fn func(io.Reader) io.Reader) FileOption {
	return func(o *fileOptions) {
		o.wrapReader = fn
	}
}

// WithWriterWrapper wraps the stream Save writes to.
func WithWriterWrapper(fn func(io.Writer) io.Writer) FileOption {
	return func(o *fileOptions) {
		o.wrapWriter = fn
	}
}

func applyFileOptions(opts []FileOption) fileOptions {
	o := fileOptions{codec: codec.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type denseDTO struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

type sparseRowDTO struct {
	Cols   []uint32  `json:"c"`
	Values []float32 `json:"v"`
}

type sparseDTO struct {
	Cols int            `json:"cols"`
	Rows []sparseRowDTO `json:"rows"`
}

type mixedDTO struct {
	Dense  denseDTO  `json:"dense"`
	Sparse sparseDTO `json:"sparse"`
}

type parameterDTO struct {
	Names  []string    `json:"names"`
	Values [][]float64 `json:"values"`
}

func toDenseDTO(d *Dense) denseDTO {
	return denseDTO{Rows: d.rows, Cols: d.cols, Data: d.data}
}

func toSparseDTO(s *Sparse) sparseDTO {
	dto := sparseDTO{Cols: s.cols, Rows: make([]sparseRowDTO, len(s.rows))}
	for i := range s.rows {
		cols, vals := s.RowEntries(i)
		dto.Rows[i] = sparseRowDTO{Cols: cols, Values: vals}
	}
	return dto
}

func (dto denseDTO) table() (*Dense, error) {
	return NewDenseFrom(dto.Rows, dto.Cols, dto.Data)
}

func (dto sparseDTO) table() (*Sparse, error) {
	s, err := NewSparse(dto.Cols)
	if err != nil {
		return nil, err
	}
	for _, r := range dto.Rows {
		if err := s.AppendRow(r.Cols, r.Values); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func encodePayload(t Table, c codec.Codec) ([]byte, error) {
	switch v := t.(type) {
	case *Dense:
		return c.Marshal(toDenseDTO(v))
	case *Sparse:
		return c.Marshal(toSparseDTO(v))
	case *Mixed:
		return c.Marshal(mixedDTO{Dense: toDenseDTO(v.dense), Sparse: toSparseDTO(v.sparse)})
	case *Parameter:
		dto := parameterDTO{Names: v.names, Values: make([][]float64, len(v.names))}
		for i, name := range v.names {
			dto.Values[i] = v.values[name]
		}
		return c.Marshal(dto)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, t)
	}
}

func decodePayload(kind Kind, data []byte, c codec.Codec) (Table, error) {
	switch kind {
	case KindDense:
		var dto denseDTO
		if err := c.Unmarshal(data, &dto); err != nil {
			return nil, err
		}
		return dto.table()
	case KindSparse:
		var dto sparseDTO
		if err := c.Unmarshal(data, &dto); err != nil {
			return nil, err
		}
		return dto.table()
	case KindMixed:
		var dto mixedDTO
		if err := c.Unmarshal(data, &dto); err != nil {
			return nil, err
		}
		d, err := dto.Dense.table()
		if err != nil {
			return nil, err
		}
		s, err := dto.Sparse.table()
		if err != nil {
			return nil, err
		}
		return NewMixed(d, s)
	case KindParameter:
		var dto parameterDTO
		if err := c.Unmarshal(data, &dto); err != nil {
			return nil, err
		}
		if len(dto.Names) != len(dto.Values) {
			return nil, fmt.Errorf("%w: %d names, %d vectors", ErrDimension, len(dto.Names), len(dto.Values))
		}
		p := NewParameter()
		for i, name := range dto.Names {
			p.Set(name, dto.Values[i])
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown kind %d", kind)
	}
}

// Encode serializes t into the table file format.
func Encode(t Table, opts ...FileOption) ([]byte, error) {
	o := applyFileOptions(opts)

	raw, err := encodePayload(t, o.codec)
	if err != nil {
		return nil, err
	}
	payload, err := compress(raw, o.compression)
	if err != nil {
		return nil, err
	}

	name := o.codec.Name()
	if len(name) > math.MaxUint8 {
		return nil, fmt.Errorf("codec name %q too long", name)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds format limit", ErrUnsupportedShape, len(payload))
	}

	var buf bytes.Buffer
	buf.Grow(fixedHeaderSize + len(name) + 8 + len(payload))
	buf.WriteString(magic)
	buf.WriteByte(formatVersion)
	buf.WriteByte(byte(t.Kind()))
	buf.WriteByte(byte(o.compression))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)

	var tail [8]byte
	binary.LittleEndian.PutUint32(tail[0:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(tail[4:], hash.CRC32C(payload))
	buf.Write(tail[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode parses a table file.
func Decode(data []byte) (Table, error) {
	if len(data) < fixedHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	if string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	p := len(magic)
	if v := data[p]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	kind := Kind(data[p+1])
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrFormat, data[p+1])
	}
	comp := Compression(data[p+2])
	if comp > CompressionZSTD {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrFormat, data[p+2])
	}
	nameLen := int(data[p+3])
	p = fixedHeaderSize

	if len(data) < p+nameLen+8 {
		return nil, fmt.Errorf("%w: truncated header", ErrFormat)
	}
	c, ok := codec.ByName(string(data[p : p+nameLen]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrFormat, data[p:p+nameLen])
	}
	p += nameLen

	size := binary.LittleEndian.Uint32(data[p:])
	sum := binary.LittleEndian.Uint32(data[p+4:])
	p += 8
	if uint64(len(data)-p) != uint64(size) {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrFormat, len(data)-p, size)
	}
	payload := data[p:]
	if !hash.Verify(payload, sum) {
		return nil, ErrChecksum
	}

	raw, err := decompress(payload, comp)
	if err != nil {
		return nil, err
	}
	t, err := decodePayload(kind, raw, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrFormat, kind, err)
	}
	return t, nil
}

// Load reads the table file name from store and checks that its kind is in
// family. It also returns the number of bytes read.
func Load(ctx context.Context, store blobstore.BlobStore, name string, family Family, opts ...FileOption) (Table, int64, error) {
	o := applyFileOptions(opts)

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	defer b.Close()

	var r io.Reader = blobstore.NewReader(ctx, b)
	if o.wrapReader != nil {
		r = o.wrapReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, int64(len(data)), fmt.Errorf("read %s: %w", name, err)
	}

	t, err := Decode(data)
	if err != nil {
		return nil, int64(len(data)), fmt.Errorf("decode %s: %w", name, err)
	}
	if err := Check(t, family); err != nil {
		return nil, int64(len(data)), fmt.Errorf("load %s: %w", name, err)
	}
	return t, int64(len(data)), nil
}

// Save encodes t and writes it to store under name. The file is published
// only if every byte was written. It returns the file size.
func Save(ctx context.Context, store blobstore.BlobStore, name string, t Table, opts ...FileOption) (int64, error) {
	o := applyFileOptions(opts)

	data, err := Encode(t, opts...)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", name, err)
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	var dst io.Writer = w
	if o.wrapWriter != nil {
		dst = o.wrapWriter(w)
	}
	if _, err := io.Copy(dst, bytes.NewReader(data)); err != nil {
		_ = blobstore.Abort(w)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return int64(len(data)), nil
}
