package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arloliu/evpack"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/internal/synth"
	"github.com/arloliu/evpack/store"
)

func runSynth(ctx context.Context, a *app, args []string) error {
	gen := synth.DefaultConfig()
	var (
		run         uint32
		first       uint64
		events      int
		compression string
	)

	fs := a.flags("synth")
	fs.Uint32Var(&run, "run", 1, "run number")
	fs.Uint64Var(&first, "first", 1, "number of the first event")
	fs.IntVar(&events, "events", 10, "number of events to generate")
	fs.IntVar(&gen.Tracks, "tracks", gen.Tracks, "tracks per event")
	fs.Uint64Var(&gen.Seed, "seed", gen.Seed, "generator seed")
	fs.StringVar(&compression, "compression", "", "compression method, overrides the configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	gen.Particles = min(gen.Particles, gen.Tracks)

	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	var extra []evpack.Option
	if compression != "" {
		method, err := format.ParseCompressionType(compression)
		if err != nil {
			return err
		}
		extra = append(extra, evpack.WithCompression(method))
	}

	w, err := a.writer(extra...)
	if err != nil {
		return err
	}

	g := synth.New(gen)
	var banks, stream int
	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := store.EventID{Run: run, Event: first + uint64(i)} //nolint:gosec
		ev, err := g.Event(id.Run, id.Event)
		if err != nil {
			return fmt.Errorf("generate %s: %w", id, err)
		}

		enc, err := w.Write(ev)
		if err != nil {
			return fmt.Errorf("write %s: %w", id, err)
		}
		if err := a.store.Put(ctx, id, enc.Banks); err != nil {
			return err
		}

		banks += len(enc.Banks)
		stream += enc.StreamSize
	}

	a.logger.Info("events stored",
		slog.Uint64("run", uint64(run)),
		slog.Int("events", events),
		slog.Int("banks", banks),
		slog.Int("stream_bytes", stream),
		slog.String("compression", w.Compression().String()),
	)

	return nil
}
