package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

const (
	Format  = "dhmitm-capture"
	Version = 1
)

var (
	ErrNotCapture = errors.New("capture: not a capture stream")
	ErrVersion    = errors.New("capture: unsupported version")
	ErrClosed     = errors.New("capture: writer closed")
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = iota // Fastest, lower ratio
	CompressionDefault                         // Balanced
	CompressionBest                            // Best ratio, slower
)

func (l CompressionLevel) lz4() lz4.CompressionLevel {
	switch l {
	case CompressionFast:
		return lz4.Fast
	case CompressionBest:
		return lz4.Level9
	default:
		return lz4.Level4
	}
}

// Header opens every capture.
type Header struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Session   uuid.UUID `json:"session"`
	Started   time.Time `json:"started"`
	Prime     uint64    `json:"prime"`
	Generator uint64    `json:"generator"`
}

// NewHeader stamps a fresh session id and start time.
func NewHeader(prime, generator uint64) Header {
	return Header{
		Format:    Format,
		Version:   Version,
		Session:   uuid.New(),
		Started:   time.Now().UTC(),
		Prime:     prime,
		Generator: generator,
	}
}

// Record is one intercepted message exactly as it crossed the relay.
type Record struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Origin string    `json:"origin"`
	Raw    string    `json:"raw"`
}

// Writer appends records to a compressed capture. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	zw     *lz4.Writer
	enc    *json.Encoder
	closer io.Closer
	seq    uint64
	header Header
	closed bool
}

func NewWriter(w io.Writer, h Header, level CompressionLevel) (*Writer, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(level.lz4())); err != nil {
		return nil, err
	}
	cw := &Writer{zw: zw, enc: json.NewEncoder(zw), header: h}
	if err := cw.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return cw, nil
}

// Create opens path for writing and starts a capture for the given group.
func Create(path string, prime, generator uint64, level CompressionLevel) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, NewHeader(prime, generator), level)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *Writer) Header() Header { return w.header }

// Write assigns the next sequence number (and a timestamp if missing) and
// flushes the record so a crashed relay still leaves a readable prefix.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.seq++
	rec.Seq = w.seq
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	if err := w.enc.Encode(rec); err != nil {
		return err
	}
	return w.zw.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.zw.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads a capture back.
type Reader struct {
	dec    *json.Decoder
	header Header
	closer io.Closer
}

func NewReader(r io.Reader) (*Reader, error) {
	dec := json.NewDecoder(lz4.NewReader(r))
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if h.Format != Format {
		return nil, fmt.Errorf("%w: format %q", ErrNotCapture, h.Format)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next record or io.EOF.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// A relay killed mid-write leaves a truncated tail; keep what parsed.
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	return rec, nil
}

// ReadAll drains the remaining records.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
