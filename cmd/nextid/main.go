// Команда nextid читает и двигает счётчик номеров подзаказов в настроенном хранилище.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/app"
)

const defaultTimeout = 15 * time.Second

func main() {
	cfg, err := app.LoadConfig(".env")
	if err != nil {
		fail("load config: %v", err)
	}
	if _, err := app.ConfigureLogger(cfg); err != nil {
		fail("configure logger: %v", err)
	}
	if err := run(cfg, os.Args[1:], os.Stdout); err != nil {
		fail("%v", err)
	}
}

func run(cfg app.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("nextid", flag.ContinueOnError)
	var (
		op    string
		value uint64
	)
	fs.StringVar(&op, "op", "get", "operation: get|set|next")
	fs.Uint64Var(&value, "value", 0, "new counter value for -op=set")
	if err := fs.Parse(args); err != nil {
		return err
	}

	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "get", "next":
	case "set":
		if value == 0 {
			return fmt.Errorf("-value must be positive for -op=set")
		}
	default:
		return fmt.Errorf("unsupported op: %s (use get|set|next)", op)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	seq, closeFn, err := app.OpenSequence(ctx, cfg, log.WithField("component", "nextid"))
	if err != nil {
		return err
	}
	defer func() { _ = closeFn(context.Background()) }()

	var got uint64
	switch op {
	case "get":
		got, err = seq.Get(ctx)
	case "next":
		got, err = seq.GetThenIncrement(ctx)
	case "set":
		if err = seq.Set(ctx, value); err == nil {
			got, err = seq.Get(ctx)
		}
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}

	_, _ = fmt.Fprintf(out, "backend=%s name=%s value=%d\n", cfg.EffectiveSequenceBackend(), cfg.SequenceName, got)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
