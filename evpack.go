// Package evpack packs reconstructed events into compact, versioned,
// checksummed banks and unpacks them again.
//
// An event is a set of keyed record containers (tracks, proto-particles,
// particles, vertices and identification results) that refer to each other.
// Writing an event quantizes every container into its packed form, replaces
// cross-container references with link-table tokens, frames the packed
// containers into one transport stream, compresses the stream and splits it
// into banks of at most 64 KiB:
//
//	reg, _ := registry.NewHashed("Rec/Track/Best", "Rec/ProtoP/Charged")
//	w, _ := evpack.NewWriter(evpack.WithRegistry(reg), evpack.WithCompression(format.CompressionLZMA))
//	enc, err := w.Write(ev)
//
// Reading reverses the pipeline:
//
//	r, _ := evpack.NewReader(evpack.WithRegistry(reg))
//	dec, err := r.Read(enc.Banks)
//
// # Failure policy
//
// Framing failures (missing or inconsistent banks, bad checksums, sizes past
// the end of the stream) abort the whole event and are returned by Read.
// Failures local to one container, such as an unsupported packing version,
// skip that container only and are reported in Decoded.Errors. References
// whose target cannot be resolved are dropped and reported in Decoded.Warnings.
//
// # Verification
//
// Both sides fold the packed containers into a checksum.Engine: Encoded.Checksums
// before transport, Decoded.Checksums after it. Comparing the two detects any
// loss between packing and unpacking.
//
// Writer and Reader are not safe for concurrent use; create one per goroutine.
package evpack

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/evpack/bank"
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/endian"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/packed"
	"github.com/arloliu/evpack/transport"
)

// Encoded is the result of writing one event.
type Encoded struct {
	Banks []bank.Bank
	// Checksums holds the digests of the packed containers before transport.
	Checksums *checksum.Engine
	// StreamSize is the length of the uncompressed transport stream.
	StreamSize int
	// Objects is the number of containers written.
	Objects int
}

// Writer packs events into banks.
type Writer struct {
	cfg *settings
	ctx *packed.Context
}

// NewWriter creates a writer. Without WithRegistry it uses a fresh registry.Hashed.
func NewWriter(opts ...Option) (*Writer, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Writer{cfg: cfg, ctx: packed.NewContext(cfg.registry, cfg.logger)}, nil
}

// Compression returns the compression method of the writer.
func (w *Writer) Compression() format.CompressionType {
	return w.cfg.compression
}

// Write packs every container of ev, in insertion order, into one transport
// stream and returns its banks. Any failure aborts the event.
func (w *Writer) Write(ev *event.Event) (*Encoded, error) {
	w.ctx.Reset()

	buf := transport.NewBuffer(endian.ForFlag(w.cfg.bigEndian))
	defer buf.Release()

	enc := &Encoded{Checksums: checksum.NewEngine()}
	for _, obj := range ev.Objects() {
		class, err := packed.ClassOf(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", obj.Location(), err)
		}

		p, err := packed.Pack(w.ctx, obj, w.cfg.versions[class])
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", obj.Location(), err)
		}

		id, err := w.cfg.registry.ID(obj.Location())
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", obj.Location(), err)
		}

		if err := packed.Save(buf, id, p); err != nil {
			return nil, fmt.Errorf("save %s: %w", obj.Location(), err)
		}
		packed.Checksum(enc.Checksums, p)
		enc.Objects++
	}

	enc.StreamSize = buf.Len()

	banks, err := bank.Encode(buf.Bytes(), w.cfg.compression, w.cfg.maxPayload, w.cfg.bigEndian)
	if err != nil {
		return nil, err
	}
	enc.Banks = banks

	w.cfg.logger.Debug("event written",
		slog.Uint64("run", uint64(ev.Run)),
		slog.Uint64("event", ev.Number),
		slog.Int("objects", enc.Objects),
		slog.Int("stream_bytes", enc.StreamSize),
		slog.Int("banks", len(banks)),
		slog.Int("cache_hits", w.ctx.CacheHits()),
	)

	return enc, nil
}

// ObjectError is a failure confined to one container of the stream.
type ObjectError struct {
	ClassID    format.ClassID
	LocationID int32
	// Location is empty when the location id is unknown to the registry.
	Location string
	Err      error
}

func (e *ObjectError) Error() string {
	loc := e.Location
	if loc == "" {
		loc = fmt.Sprintf("location %d", e.LocationID)
	}

	return fmt.Sprintf("%s at %s: %v", e.ClassID, loc, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// Decoded is the result of reading one event.
type Decoded struct {
	// Event holds the unpacked containers in stream order. Its Run and Number are zero:
	// banks do not carry them.
	Event *event.Event
	// Errors lists the containers that were skipped.
	Errors []*ObjectError
	// Warnings lists the dropped references, as *errs.ReferenceError values.
	Warnings []error
	// Checksums holds the digests of the containers loaded from the stream.
	Checksums *checksum.Engine
}

// Err joins the object errors, or returns nil when every container was read.
func (d *Decoded) Err() error {
	joined := make([]error, len(d.Errors))
	for i, e := range d.Errors {
		joined[i] = e
	}

	return errors.Join(joined...)
}

// Reader unpacks banks into events.
type Reader struct {
	cfg *settings
	ctx *packed.Context
}

// NewReader creates a reader. Only WithRegistry and WithLogger apply to readers.
func NewReader(opts ...Option) (*Reader, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Reader{cfg: cfg, ctx: packed.NewContext(cfg.registry, cfg.logger)}, nil
}

// Read reassembles banks into an event. banks is sorted in place.
//
// It returns an error only for framing failures; see the package documentation.
func (r *Reader) Read(banks []bank.Bank) (*Decoded, error) {
	r.ctx.Reset()

	stream, bigEndian, err := bank.Decode(banks)
	if err != nil {
		return nil, err
	}

	dec := &Decoded{Event: event.New(0, 0), Checksums: checksum.NewEngine()}
	in := transport.NewReader(stream, endian.ForFlag(bigEndian))
	for {
		h, payload, err := in.NextObject()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		warnings := len(r.ctx.ReferenceErrors())
		if err := r.readObject(dec, h, payload); err != nil {
			// the container is discarded, so are its dropped references
			r.ctx.TruncateReferenceErrors(warnings)

			oerr := &ObjectError{ClassID: h.ClassID, LocationID: h.LocationID, Err: err}
			oerr.Location, _ = r.cfg.registry.Location(h.LocationID)
			dec.Errors = append(dec.Errors, oerr)

			r.cfg.logger.Warn("container skipped",
				slog.String("class", h.ClassID.String()),
				slog.Int("location_id", int(h.LocationID)),
				slog.String("error", err.Error()),
			)
		}
	}
	dec.Warnings = r.ctx.ReferenceErrors()

	return dec, nil
}

func (r *Reader) readObject(dec *Decoded, h transport.FrameHeader, payload *transport.Reader) error {
	location, err := r.cfg.registry.Location(h.LocationID)
	if err != nil {
		return err
	}

	obj, err := packed.Load(h, payload)
	if err != nil {
		return err
	}

	live, err := packed.Unpack(r.ctx, location, obj)
	if err != nil {
		return err
	}
	if err := dec.Event.Add(live); err != nil {
		return err
	}

	packed.Checksum(dec.Checksums, obj)

	return nil
}
