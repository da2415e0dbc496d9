package binio

import "encoding/binary"

// Buffer accumulates little-endian fields.
type Buffer struct {
	b []byte
}

// NewBuffer returns a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{b: make([]byte, 0, capacity)}
}

func (w *Buffer) U8(v uint8) { w.b = append(w.b, v) }

func (w *Buffer) U16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }

func (w *Buffer) U32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }

func (w *Buffer) U64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }

func (w *Buffer) Write(p []byte) { w.b = append(w.b, p...) }

// Bytes returns the accumulated bytes.
func (w *Buffer) Bytes() []byte { return w.b }

// Len returns the number of accumulated bytes.
func (w *Buffer) Len() int { return len(w.b) }
