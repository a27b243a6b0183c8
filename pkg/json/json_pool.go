// Package json provides JSON serialization backed by pooled encode buffers.
//
// Buffers live in an object pool; each encode call wraps its buffer in a
// short-lived session that owns a fresh encoder and resets the buffer when
// the call finishes.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// maxRetainedBuffer is the largest buffer capacity kept across calls.
const maxRetainedBuffer = 1 << 20

var (
	encoders     *pool.ShimmedPool[*bytes.Buffer, *encodeSession]
	encodersOnce sync.Once
)

// encodeSession is the per-call view of a pooled buffer.
type encodeSession struct {
	buf *bytes.Buffer
	enc *gojson.Encoder
}

// Close resets the buffer, dropping its storage if it grew too large.
func (s *encodeSession) Close() error {
	if s.buf.Cap() > maxRetainedBuffer {
		*s.buf = bytes.Buffer{}
		return nil
	}
	s.buf.Reset()
	return nil
}

func encoderPool() *pool.ShimmedPool[*bytes.Buffer, *encodeSession] {
	encodersOnce.Do(func() {
		sp, err := pool.NewShimmed(
			func() (*bytes.Buffer, error) {
				return bytes.NewBuffer(make([]byte, 0, 4096)), nil
			},
			func(buf *bytes.Buffer) (*encodeSession, error) {
				buf.Reset()
				enc := gojson.NewEncoder(buf)
				enc.SetEscapeHTML(false)
				return &encodeSession{buf: buf, enc: enc}, nil
			},
			pool.WithName("json.buffers"),
		)
		if err != nil {
			panic(err)
		}
		encoders = sp
	})
	return encoders
}

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// MarshalToWriter encodes v into a pooled buffer and writes it to w,
// followed by a newline. Nothing is written if encoding fails.
func MarshalToWriter(w io.Writer, v interface{}) error {
	return MarshalIndentToWriter(w, v, "", "")
}

// MarshalIndentToWriter is MarshalToWriter with indentation.
func MarshalIndentToWriter(w io.Writer, v interface{}, prefix, indent string) error {
	return encoderPool().Use(func(s *encodeSession) error {
		s.enc.SetIndent(prefix, indent)
		if err := s.enc.Encode(v); err != nil {
			return err
		}
		_, err := w.Write(s.buf.Bytes())
		return err
	})
}

// MarshalLines encodes values as newline-delimited JSON.
func MarshalLines(values []interface{}) ([]byte, error) {
	return pool.UseShimmedValue(encoderPool(), func(s *encodeSession) ([]byte, error) {
		for _, v := range values {
			if err := s.enc.Encode(v); err != nil {
				return nil, err
			}
		}
		return bytes.Clone(s.buf.Bytes()), nil
	})
}

// BufferStats reports activity of the encode buffer pool.
func BufferStats() pool.Stats {
	return encoderPool().Stats()
}
