package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arloliu/evpack"
	"github.com/arloliu/evpack/store"
)

// errVerify reports that at least one event failed verification.
var errVerify = errors.New("verification failed")

// runVerify decodes every event of a run, packs the decoded event again and
// compares the container checksums of both sides.
func runVerify(ctx context.Context, a *app, args []string) error {
	var run uint32

	fs := a.flags("verify")
	fs.Uint32Var(&run, "run", 1, "run number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	ids, err := a.store.Events(ctx, run)
	if err != nil {
		return err
	}

	r, err := a.reader()
	if err != nil {
		return err
	}
	w, err := a.writer()
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		if err := verifyEvent(ctx, a, r, w, id); err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s: ok\n", id)
	}

	a.logger.Info("run verified",
		slog.Uint64("run", uint64(run)),
		slog.Int("events", len(ids)),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d events", errVerify, failed, len(ids))
	}

	return nil
}

func verifyEvent(ctx context.Context, a *app, r *evpack.Reader, w *evpack.Writer, id store.EventID) error {
	banks, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}

	dec, err := r.Read(banks)
	if err != nil {
		return err
	}
	if err := dec.Err(); err != nil {
		return err
	}

	enc, err := w.Write(dec.Event)
	if err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}

	if mismatches := dec.Checksums.Compare(enc.Checksums); len(mismatches) > 0 {
		return fmt.Errorf("%d checksum mismatches, first: %s", len(mismatches), mismatches[0])
	}

	return nil
}
