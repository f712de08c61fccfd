// streaming.go: io.Writer and io.Reader adapters over cipher and AEAD contexts.
//
// The adapters process data in bounded chunks so arbitrarily large inputs
// can be piped through a context without holding them in memory.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"io"
)

// DefaultChunkSize is the amount of input handed to a context per call.
const DefaultChunkSize = 64 * 1024

// maxChunkSize caps custom chunk sizes at 10MB.
const maxChunkSize = 10 * 1024 * 1024

type updateFunc func(dst, src []byte) (int, error)

func checkChunkSize(n int) error {
	if n <= 0 || n > maxChunkSize {
		return newError(ErrBadParams, ErrCodeBadParams, "chunk size must be between 1 byte and 10MB")
	}
	return nil
}

// streamWriter transforms everything written to it and forwards the result
// to w. Close ends the underlying context and writes any trailer.
type streamWriter struct {
	w      io.Writer
	update updateFunc
	finish func() ([]byte, error)
	out    []byte
	chunk  int
	closed bool
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if s.closed {
		return 0, newError(ErrBadState, ErrCodeBadState, "write to closed stream")
	}
	total := 0
	for len(p) > 0 {
		n := min(len(p), s.chunk)
		m, err := s.update(s.out, p[:n])
		if err != nil {
			return total, err
		}
		if _, err := s.w.Write(s.out[:m]); err != nil {
			return total, err
		}
		total += n
		p = p[n:]
	}
	return total, nil
}

func (s *streamWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	trailer, err := s.finish()
	if err != nil {
		return err
	}
	if len(trailer) > 0 {
		_, err = s.w.Write(trailer)
	}
	Zeroize(s.out)
	return err
}

// NewCipherWriter returns a writer that runs everything written through c
// and writes the output to w. Close calls c.End; the caller still owns
// and destroys c.
func NewCipherWriter(w io.Writer, c *CipherContext) (io.WriteCloser, error) {
	return NewCipherWriterWithChunkSize(w, c, DefaultChunkSize)
}

// NewCipherWriterWithChunkSize is NewCipherWriter with a custom chunk size.
func NewCipherWriterWithChunkSize(w io.Writer, c *CipherContext, chunkSize int) (io.WriteCloser, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := checkChunkSize(chunkSize); err != nil {
		return nil, err
	}
	return &streamWriter{
		w:      w,
		update: c.Update,
		finish: func() ([]byte, error) { return nil, c.End() },
		out:    make([]byte, chunkSize+c.blockLen),
		chunk:  chunkSize,
	}, nil
}

// NewSealWriter returns a writer that encrypts through an encrypting AEAD
// context. Close appends the authentication tag. Any AAD must have been
// supplied before the first Write.
func NewSealWriter(w io.Writer, a *AEADContext) (io.WriteCloser, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if a.dir != Encrypt {
		return nil, newError(ErrBadState, ErrCodeBadState, "seal writer requires an encrypting context")
	}
	return &streamWriter{
		w:      w,
		update: a.Encrypt,
		finish: func() ([]byte, error) {
			tag := make([]byte, a.MACLen())
			n, err := a.EncryptEnd(tag)
			return tag[:n], err
		},
		out:   make([]byte, DefaultChunkSize),
		chunk: DefaultChunkSize,
	}, nil
}

// streamReader pulls input from r, transforms it and serves the result.
// The last hold bytes of the input are withheld from update and handed to
// finish at end of stream.
type streamReader struct {
	r       io.Reader
	update  updateFunc
	finish  func(tail []byte) error
	hold    int
	in      []byte
	nin     int
	out     []byte
	pending []byte
	eof     bool
	err     error
}

func newStreamReader(r io.Reader, update updateFunc, finish func([]byte) error, hold, slack int) *streamReader {
	return &streamReader{
		r:      r,
		update: update,
		finish: finish,
		hold:   hold,
		in:     make([]byte, DefaultChunkSize+hold),
		out:    make([]byte, DefaultChunkSize+slack),
	}
}

func (s *streamReader) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.r.Read(s.in[s.nin:])
		s.nin += n
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			s.err = err
			return 0, err
		}

		if avail := s.nin - s.hold; avail > 0 {
			m, err := s.update(s.out, s.in[:avail])
			if err != nil {
				s.err = err
				return 0, err
			}
			s.pending = s.out[:m]
			s.nin = copy(s.in, s.in[avail:s.nin])
		}
		if s.eof {
			if err := s.finish(s.in[:s.nin]); err != nil {
				s.err = err
			} else {
				s.err = io.EOF
			}
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// NewCipherReader returns a reader serving the transformation of r through
// c. At end of input it calls c.End, so a misaligned stream surfaces as
// ErrBadInputLength instead of io.EOF.
func NewCipherReader(r io.Reader, c *CipherContext) (io.Reader, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return newStreamReader(r, c.Update, func([]byte) error { return c.End() }, 0, c.blockLen), nil
}

// NewOpenReader returns a reader that decrypts r through a decrypting AEAD
// context, treating the final MACLen bytes of r as the tag. A failed
// verification is returned by the last Read in place of io.EOF; data read
// before that point is unauthenticated.
func NewOpenReader(r io.Reader, a *AEADContext) (io.Reader, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if a.dir != Decrypt {
		return nil, newError(ErrBadState, ErrCodeBadState, "open reader requires a decrypting context")
	}
	return newStreamReader(r, a.Decrypt, a.DecryptEnd, a.MACLen(), 0), nil
}
