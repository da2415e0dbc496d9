// Package codec adapts the zstd block codec to the archive's exact-size
// compress and decompress contract.
package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/pameecs/peac/internal/peactype"
	"github.com/pameecs/peac/internal/sizing"
)

const (
	// DefaultLevel is the zstd level used when a non-positive level is requested.
	DefaultLevel = 3

	// DefaultMaxDecoderMemory is the default maximum decoder memory (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// Codec compresses and decompresses whole byte blocks.
//
// A Codec is safe for concurrent use. DecodeAll and EncodeAll on the
// underlying zstd objects are themselves concurrency safe, so a single
// decoder and one encoder per level are shared by all callers.
type Codec struct {
	maxDecoderMemory      uint64
	decoderConcurrencySet bool
	decoderConcurrency    int
	decoderLowmem         bool

	dec *zstd.Decoder

	mu       sync.Mutex
	encoders map[zstd.EncoderLevel]*zstd.Encoder
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDecoderMemory sets the maximum decoder memory limit.
// Set to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *Codec) {
		c.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets how many blocks may be decoded at once.
// Values <= 0 use GOMAXPROCS.
func WithDecoderConcurrency(n int) Option {
	return func(c *Codec) {
		if n < 0 {
			n = 0
		}
		c.decoderConcurrency = n
		c.decoderConcurrencySet = true
	}
}

// WithDecoderLowmem sets whether the decoder should use low-memory mode.
func WithDecoderLowmem(enabled bool) Option {
	return func(c *Codec) {
		c.decoderLowmem = enabled
	}
}

// New creates a Codec.
func New(opts ...Option) (*Codec, error) {
	c := &Codec{
		maxDecoderMemory: DefaultMaxDecoderMemory,
		encoders:         make(map[zstd.EncoderLevel]*zstd.Encoder),
	}
	for _, opt := range opts {
		opt(c)
	}

	dopts := []zstd.DOption{zstd.WithDecoderLowmem(c.decoderLowmem)}
	if c.decoderConcurrencySet {
		dopts = append(dopts, zstd.WithDecoderConcurrency(c.decoderConcurrency))
	} else {
		dopts = append(dopts, zstd.WithDecoderConcurrency(0))
	}
	if c.maxDecoderMemory != 0 {
		dopts = append(dopts, zstd.WithDecoderMaxMemory(c.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(nil, dopts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create zstd decoder: %v", peactype.ErrCodec, err)
	}
	c.dec = dec
	return c, nil
}

// Compress encodes src as a single zstd frame at the given zstd level.
func (c *Codec) Compress(src []byte, level int) ([]byte, error) {
	enc, err := c.encoder(level)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

// maxPrealloc caps the output buffer reserved before decoding. Sizes come
// from unchecked archive metadata; larger outputs grow as they decode.
const maxPrealloc = 1 << 20

// Decompress decodes src and requires the result to be exactly size bytes.
// A frame whose header declares a different content size fails before any
// output is allocated.
func (c *Codec) Decompress(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", peactype.ErrCodec, size)
	}
	var h zstd.Header
	if h.Decode(src) == nil && h.HasFCS && !h.Skippable && h.FrameContentSize != uint64(size) {
		return nil, fmt.Errorf("%w: frame holds %d bytes, want %d", peactype.ErrCodec, h.FrameContentSize, size)
	}
	out, err := c.dec.DecodeAll(src, make([]byte, 0, min(size, maxPrealloc)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", peactype.ErrCodec, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", peactype.ErrCodec, len(out), size)
	}
	return out, nil
}

// DecompressFrame decodes src using the content size recorded in its frame header.
func (c *Codec) DecompressFrame(src []byte) ([]byte, error) {
	var h zstd.Header
	if err := h.Decode(src); err != nil {
		return nil, fmt.Errorf("%w: frame header: %v", peactype.ErrCodec, err)
	}
	if !h.HasFCS {
		return nil, fmt.Errorf("%w: frame content size unknown", peactype.ErrCodec)
	}
	size, err := sizing.ToInt(h.FrameContentSize, peactype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", peactype.ErrCodec, err)
	}
	return c.Decompress(src, size)
}

// Close releases the decoder and all cached encoders.
func (c *Codec) Close() error {
	c.dec.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for level, enc := range c.encoders {
		if err := enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.encoders, level)
	}
	return firstErr
}

// encoder returns the shared encoder for level, creating it on first use.
func (c *Codec) encoder(level int) (*zstd.Encoder, error) {
	if level <= 0 {
		level = DefaultLevel
	}
	el := zstd.EncoderLevelFromZstd(level)

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encoders[el]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(el),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create zstd encoder: %v", peactype.ErrCodec, err)
	}
	c.encoders[el] = enc
	return enc, nil
}
