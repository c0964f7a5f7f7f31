// Package command turns command-line tokens into storage operations. It owns
// the command table, argument validation, usage text and the console
// messages each command prints.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHelp is returned by Parse when usage text was requested
	ErrHelp = errors.New("help requested")

	// ErrArgument marks a missing positional argument
	ErrArgument = errors.New("missing argument")

	// ErrInvalidCommand marks an unknown command name
	ErrInvalidCommand = errors.New("invalid command")
)

// ArgumentError reports a command invoked with too few arguments. Its
// message is the one shown to the user.
type ArgumentError struct {
	Command string
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrArgument) true.
func (e *ArgumentError) Is(target error) bool { return target == ErrArgument }

// Command describes one entry of the command table.
type Command struct {
	Name    string
	Args    []string // Positional argument names, all required
	Summary string
	Missing string // Printed when an argument is missing

	run func(d *Dispatcher, ctx context.Context, args []string) error
}

// Arity returns the number of required positional arguments.
func (c *Command) Arity() int { return len(c.Args) }

// Invocation is a parsed command line.
type Invocation struct {
	Command *Command
	Args    []string // Exactly Arity() non-empty values
}

const helpCommand = "help"

var commands = []*Command{
	{
		Name:    "create-bucket",
		Args:    []string{"bucket-name"},
		Summary: "Creates a new S3 bucket with the specified name.",
		Missing: "Bucket name required",
		run:     (*Dispatcher).createBucket,
	},
	{
		Name:    "upload-object",
		Args:    []string{"bucket-name", "file-path"},
		Summary: "Uploads a file to the specified S3 bucket.",
		Missing: "Bucket name and file path required",
		run:     (*Dispatcher).uploadObject,
	},
	{
		Name:    "download-object",
		Args:    []string{"bucket-name", "object-key"},
		Summary: "Downloads an object from the specified S3 bucket.",
		Missing: "Bucket name and object key required",
		run:     (*Dispatcher).downloadObject,
	},
	{
		Name:    "delete-bucket",
		Args:    []string{"bucket-name"},
		Summary: "Deletes the specified S3 bucket (must be empty).",
		Missing: "Bucket name required",
		run:     (*Dispatcher).deleteBucket,
	},
	{
		Name:    "create-website",
		Args:    []string{"bucket-name"},
		Summary: "Configures the specified S3 bucket for static website hosting.",
		Missing: "Bucket name required",
		run:     (*Dispatcher).createWebsite,
	},
	{
		Name:    "add-notification",
		Args:    []string{"bucket-name", "topic-arn"},
		Summary: "Configures the specified S3 bucket to send notification when a new object is uploaded.",
		Missing: "Bucket name and topic ARN is required",
		run:     (*Dispatcher).addNotification,
	},
}

// Commands returns the command table in usage order.
func Commands() []*Command {
	return append([]*Command(nil), commands...)
}

// Lookup finds a command by exact name.
func Lookup(name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Parse selects a command from the first token and validates its arguments.
// Arguments beyond the command's arity are ignored.
func Parse(args []string) (Invocation, error) {
	if len(args) == 0 || args[0] == helpCommand {
		return Invocation{}, ErrHelp
	}

	cmd, ok := Lookup(args[0])
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %s", ErrInvalidCommand, args[0])
	}

	positional := args[1:]
	if len(positional) < cmd.Arity() {
		return Invocation{}, &ArgumentError{Command: cmd.Name, Message: cmd.Missing}
	}
	positional = positional[:cmd.Arity()]
	for _, a := range positional {
		if a == "" {
			return Invocation{}, &ArgumentError{Command: cmd.Name, Message: cmd.Missing}
		}
	}

	return Invocation{Command: cmd, Args: append([]string(nil), positional...)}, nil
}

// Usage returns the help text for program.
func Usage(program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [flags] <command> [<args>]\n", program)
	b.WriteString("Commands:\n")
	for _, c := range commands {
		name := c.Name
		for _, a := range c.Args {
			name += " <" + a + ">"
		}
		fmt.Fprintf(&b, "  %s - %s\n", name, c.Summary)
	}
	b.WriteString("\nOptions:\n")
	b.WriteString("  help - Shows this help message.\n")
	b.WriteString("\nExamples:\n")
	fmt.Fprintf(&b, "  %s create-bucket my-awesome-bucket\n", program)
	fmt.Fprintf(&b, "  %s upload-object my-awesome-bucket ./path/to/myfile.txt\n", program)
	fmt.Fprintf(&b, "  %s download-object my-awesome-bucket myfile.txt\n", program)
	fmt.Fprintf(&b, "  %s delete-bucket my-awesome-bucket\n", program)
	fmt.Fprintf(&b, "  %s create-website my-awesome-bucket\n", program)
	fmt.Fprintf(&b, "  %s add-notification my-awesome-bucket arn:aws:sns:us-east-1:123456789012:MyTopic\n", program)
	return b.String()
}
