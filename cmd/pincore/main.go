// cmd/pincore is the command line interface to a pincore repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pincore "github.com/ipfs/pincore"
	"github.com/ipfs/pincore/errs"
	"github.com/ipfs/pincore/tracing"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
)

var log = logging.Logger("cmd/pincore")

func main() {
	os.Exit(mainRet())
}

func printErr(err error) int {
	log.Debugw("command failed", "kind", errs.Kind(err), "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	return 1
}

func mainRet() (exitCode int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing.ServiceVersion = pincore.CurrentVersionNumber
	tp, err := tracing.NewTracerProvider(ctx)
	if err != nil {
		return printErr(err)
	}
	defer func() {
		// the run context may already be cancelled, spans still get flushed
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			exitCode = printErr(err)
		}
	}()
	otel.SetTracerProvider(tp)

	root := newRootCmd(os.Stdin, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		return printErr(err)
	}
	return 0
}
