// evpack writes synthetic events into a bank store, dumps stored events and
// verifies that stored events survive a decode and re-encode unchanged.
//
// Usage:
//
//	evpack synth  --db DIR [--run N] [--events N] [--tracks N] [--compression lzma]
//	evpack dump   --db DIR --run N --event N [--format text|json|cbor]
//	evpack verify --db DIR --run N
//
// Every command accepts --config FILE, a YAML file in the form of evpack.Config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/arloliu/evpack"
	"github.com/arloliu/evpack/internal/synth"
	"github.com/arloliu/evpack/store"
)

const usage = `usage: evpack <command> [flags]

commands:
  synth   generate synthetic events and store them
  dump    print one stored event
  verify  decode, re-encode and compare every event of a run
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"synth":  runSynth,
	"dump":   runDump,
	"verify": runVerify,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stderr, usage)
		return pflag.ErrHelp
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	return cmd(ctx, &app{stdout: stdout, stderr: stderr}, args[1:])
}

// app holds what every command shares: output streams, configuration and the bank store.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	dbPath     string

	cfg    evpack.Config
	logger *slog.Logger
	store  store.Store
}

func (a *app) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&a.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&a.dbPath, "db", "", "bank store directory (required)")

	return fs
}

// open loads the configuration and opens the store. Callers must call close.
func (a *app) open() error {
	if a.dbPath == "" {
		return errors.New("--db is required")
	}

	a.cfg = evpack.DefaultConfig()
	if a.configPath != "" {
		cfg, err := evpack.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	a.cfg.Locations = append(synth.Locations(), a.cfg.Locations...)

	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: a.cfg.Level()}))

	db, err := store.OpenPebble(a.dbPath, nil)
	if err != nil {
		return err
	}
	a.store = db

	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("close store", slog.String("error", err.Error()))
	}
}

func (a *app) writer(extra ...evpack.Option) (*evpack.Writer, error) {
	opts, err := a.cfg.Options(a.logger)
	if err != nil {
		return nil, err
	}

	return evpack.NewWriter(append(opts, extra...)...)
}

func (a *app) reader() (*evpack.Reader, error) {
	opts, err := a.cfg.Options(a.logger)
	if err != nil {
		return nil, err
	}

	return evpack.NewReader(opts...)
}
