package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// StoreOpener connects to the token store described by cfg
type StoreOpener func(ctx context.Context, cfg tokenstore.Config) (tokenstore.Store, error)

// Env carries what every command shares
type Env struct {
	Out       io.Writer
	Logger    *logrus.Logger
	OpenStore StoreOpener
}

// DefaultEnv writes results to stdout, logs to stderr and opens stores with tokenstore.New
func DefaultEnv() *Env {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Env{
		Out:    os.Stdout,
		Logger: logger,
		OpenStore: func(ctx context.Context, cfg tokenstore.Config) (tokenstore.Store, error) {
			return tokenstore.New(ctx, cfg, observability.NewLogger(observability.WarnLevel, os.Stderr))
		},
	}
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	return NewRootCommandWithEnv(DefaultEnv())
}

// NewRootCommandWithEnv creates the root command bound to env
func NewRootCommandWithEnv(env *Env) *Command {
	root := &Command{
		Name:        "handoff",
		Description: "Handoff - SSO delegation token tooling",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("handoff", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["mint"] = newMintCommand(env)
	root.Subcommands["inspect"] = newInspectCommand(env)
	root.Subcommands["ping"] = newPingCommand(env)
	root.Subcommands["sweep"] = newSweepCommand(env)

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with args, which exclude the program name
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if strings.EqualFold(args[0], "-h") || strings.EqualFold(args[0], "--help") {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
