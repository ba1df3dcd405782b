package packed

import (
	"math"

	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// ExtraInfo is a packed (key, value) annotation. Values are kept exactly.
type ExtraInfo struct {
	Key   int32
	Value float64
}

func (e *ExtraInfo) Fold(h *checksum.Hasher) {
	h.Int32(e.Key)
	h.Float64(e.Value)
}

func saveExtraInfo(w *transport.Buffer, e *ExtraInfo) {
	w.AppendInt32(e.Key)
	w.AppendUint64(math.Float64bits(e.Value))
}

func loadExtraInfo(r *transport.Reader) ExtraInfo {
	return ExtraInfo{Key: r.Int32(), Value: math.Float64frombits(r.Uint64())}
}

func packExtraInfo(side []ExtraInfo, info []event.ExtraInfo) ([]ExtraInfo, Span) {
	first := len(side)
	for _, e := range info {
		side = append(side, ExtraInfo{Key: e.Key, Value: e.Value})
	}

	return side, Span{First: uint32(first), Last: uint32(len(side))} //nolint:gosec
}

func unpackExtraInfo(side []ExtraInfo, s Span) []event.ExtraInfo {
	packed := sliceSpan(side, s)
	if len(packed) == 0 {
		return nil
	}

	out := make([]event.ExtraInfo, len(packed))
	for i, e := range packed {
		out[i] = event.ExtraInfo{Key: e.Key, Value: e.Value}
	}

	return out
}

func saveToken(w *transport.Buffer, token int64, layout ref.Layout) {
	if layout == ref.Layout32 {
		w.AppendInt32(int32(token)) //nolint:gosec
		return
	}
	w.AppendInt64(token)
}

func loadToken(r *transport.Reader, layout ref.Layout) int64 {
	if layout == ref.Layout32 {
		return int64(r.Int32())
	}

	return r.Int64()
}

func tokenSize(layout ref.Layout) int {
	if layout == ref.Layout32 {
		return 4
	}

	return 8
}

// saveSlice writes a varint count followed by every element.
func saveSlice[T any](w *transport.Buffer, items []T, save func(*transport.Buffer, *T)) {
	w.AppendUvarint(uint64(len(items)))
	for i := range items {
		save(w, &items[i])
	}
}

// loadSlice reads a slice written by saveSlice. minSize is the smallest
// encoded element, used to reject counts the payload cannot hold.
func loadSlice[T any](r *transport.Reader, minSize int, load func(*transport.Reader) T) []T {
	n := r.Count(minSize)
	if n == 0 {
		return nil
	}

	items := make([]T, n)
	for i := range items {
		items[i] = load(r)
	}

	return items
}

func saveTokens(w *transport.Buffer, tokens []int64, layout ref.Layout) {
	w.AppendUvarint(uint64(len(tokens)))
	for _, t := range tokens {
		saveToken(w, t, layout)
	}
}

func loadTokens(r *transport.Reader, layout ref.Layout) []int64 {
	return loadSlice(r, tokenSize(layout), func(r *transport.Reader) int64 {
		return loadToken(r, layout)
	})
}

func foldTokens(h *checksum.Hasher, tokens []int64) {
	h.Len(len(tokens))
	for _, t := range tokens {
		h.Int64(t)
	}
}

func foldSpan(h *checksum.Hasher, s Span) {
	h.Uint32(s.First)
	h.Uint32(s.Last)
}
