package transport

import (
	"io"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

// FrameHeader precedes every object in a transport stream:
//
//	u32 classId | i32 locationId | uvarint linkCount | linkCount x i32 | u32 payloadLength
//
// The payload that follows starts with the packing-version byte of the container.
type FrameHeader struct {
	ClassID    format.ClassID
	LocationID int32
	// Links are the location ids of the link table, in registration order.
	Links []int32
	// Size is the payload length in bytes. It is filled in by SaveObject.
	Size uint32
}

// SaveObject frames the payload written by body. On error the buffer is
// truncated to its length before the call, so a failed object leaves no bytes behind.
func (b *Buffer) SaveObject(h FrameHeader, body func(*Buffer) error) error {
	start := b.Len()

	b.AppendUint32(uint32(h.ClassID))
	b.AppendInt32(h.LocationID)
	b.AppendUvarint(uint64(len(h.Links)))
	for _, id := range h.Links {
		b.AppendInt32(id)
	}

	pos := b.ReserveSize()
	payloadStart := b.Len()

	if err := body(b); err != nil {
		b.truncate(start)
		return err
	}

	if err := b.PatchSize(pos, b.Len()-payloadStart); err != nil {
		b.truncate(start)
		return err
	}

	return nil
}

// NextObject reads the next frame header and returns a cursor over its payload.
// The payload is consumed from r whether or not the caller decodes it, so a
// skipped or failed object never disturbs its siblings.
//
// It returns io.EOF when no bytes are left and a *errs.FramingError when the
// header is truncated or the declared size points past the end of the stream.
func (r *Reader) NextObject() (FrameHeader, *Reader, error) {
	var h FrameHeader
	if r.err != nil {
		return h, nil, &errs.FramingError{Op: "read object", Reason: "stream already failed", Err: r.err}
	}
	if r.Remaining() == 0 {
		return h, nil, io.EOF
	}

	offset := r.pos
	h.ClassID = format.ClassID(r.Uint32())
	h.LocationID = r.Int32()
	n := r.Count(4)
	if n > 0 {
		h.Links = make([]int32, n)
		for i := range h.Links {
			h.Links[i] = r.Int32()
		}
	}
	h.Size = r.Uint32()
	if r.err != nil {
		err := errs.Framing("read object", "truncated frame header at offset %d", offset)
		err.Err = r.err

		return h, nil, err
	}

	if uint64(h.Size) > uint64(r.Remaining()) {
		err := errs.Framing("read object", "%s payload of %d bytes at offset %d exceeds %d remaining bytes",
			h.ClassID, h.Size, r.pos, r.Remaining())
		r.err = err

		return h, nil, err
	}

	return h, r.Sub(int(h.Size)), nil
}
