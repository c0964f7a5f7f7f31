package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gurre/s3demo/storage"
	log "github.com/sirupsen/logrus"
)

// ConnectFunc opens the storage service. The returned closer releases the
// underlying client and is called exactly once.
type ConnectFunc func(ctx context.Context) (storage.Service, io.Closer, error)

// Env is the process environment a command runs in.
type Env struct {
	Program string
	Stdout  io.Writer
	Stderr  io.Writer
	Connect ConnectFunc
}

// Run parses args, executes the selected command and returns the process
// exit status. The storage client is only opened once the arguments are
// valid, and it is released before Run returns.
func Run(ctx context.Context, args []string, env Env) int {
	inv, err := Parse(args)
	if err != nil {
		var argErr *ArgumentError
		switch {
		case errors.Is(err, ErrHelp):
			fmt.Fprint(env.Stdout, Usage(env.Program))
		case errors.As(err, &argErr):
			fmt.Fprintln(env.Stdout, argErr.Message)
		default:
			fmt.Fprintln(env.Stdout, "Invalid command")
		}
		return 1
	}

	svc, closer, err := env.Connect(ctx)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Failed to create storage client: %v\n", err)
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("Failed to release storage client")
		}
	}()

	if err := NewDispatcher(svc, env.Stdout).Execute(ctx, inv); err != nil {
		log.WithField("command", inv.Command.Name).WithError(errors.Unwrap(err)).Debug("Command failed")
		fmt.Fprintln(env.Stderr, err.Error())
		return 1
	}
	return 0
}
