package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"

	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/packed"
	"github.com/arloliu/evpack/store"
)

type dumpedEvent struct {
	Run        uint32            `json:"run" cbor:"run"`
	Event      uint64            `json:"event" cbor:"event"`
	Containers []dumpedContainer `json:"containers" cbor:"containers"`
	Errors     []string          `json:"errors,omitempty" cbor:"errors,omitempty"`
	Warnings   []string          `json:"warnings,omitempty" cbor:"warnings,omitempty"`
}

type dumpedContainer struct {
	Location string `json:"location" cbor:"location"`
	Class    string `json:"class" cbor:"class"`
	Len      int    `json:"len" cbor:"len"`
	Records  any    `json:"records,omitempty" cbor:"records,omitempty"`
}

func runDump(ctx context.Context, a *app, args []string) error {
	var (
		id      store.EventID
		format  string
		records bool
	)

	fs := a.flags("dump")
	fs.Uint32Var(&id.Run, "run", 1, "run number")
	fs.Uint64Var(&id.Event, "event", 1, "event number")
	fs.StringVarP(&format, "format", "f", "text", "output format: text, json or cbor")
	fs.BoolVar(&records, "records", false, "include the records in json and cbor output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	banks, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}

	r, err := a.reader()
	if err != nil {
		return err
	}
	dec, err := r.Read(banks)
	if err != nil {
		return fmt.Errorf("read %s: %w", id, err)
	}

	out := dumpedEvent{Run: id.Run, Event: id.Event}
	for _, obj := range dec.Event.Objects() {
		class, err := packed.ClassOf(obj)
		if err != nil {
			return err
		}

		c := dumpedContainer{Location: obj.Location(), Class: class.String(), Len: obj.Len()}
		if records {
			c.Records = recordsOf(obj)
		}
		out.Containers = append(out.Containers, c)
	}
	for _, e := range dec.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	for _, w := range dec.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}

	return writeDump(a.stdout, format, &out)
}

func writeDump(w io.Writer, format string, ev *dumpedEvent) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "run %d event %d: %d containers\n", ev.Run, ev.Event, len(ev.Containers))
		for _, c := range ev.Containers {
			fmt.Fprintf(w, "  %-16s %-36s %6d\n", c.Class, c.Location, c.Len)
		}
		for _, e := range ev.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		if n := len(ev.Warnings); n > 0 {
			fmt.Fprintf(w, "  %d dropped references\n", n)
		}

		return nil
	case "json":
		data, err := json.MarshalIndent(ev, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)

		return err
	case "cbor":
		data, err := cbor.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = w.Write(data)

		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func recordsOf(obj event.Object) any {
	switch c := obj.(type) {
	case *event.Tracks:
		return c.All()
	case *event.ProtoParticles:
		return c.All()
	case *event.Particles:
		return c.All()
	case *event.Vertices:
		return c.All()
	case *event.RichPIDs:
		return c.All()
	case *event.MuonPIDs:
		return c.All()
	case *event.CaloHypos:
		return c.All()
	default:
		return nil
	}
}
