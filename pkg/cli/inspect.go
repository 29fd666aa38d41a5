package cli

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/handoff/pkg/sso"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

func newInspectCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "inspect",
		Description: "Show the user id a token vouches for",
		Flags:       flag.NewFlagSet("inspect", flag.ContinueOnError),
	}

	store := addStoreFlags(cmd.Flags)
	prefix := cmd.Flags.String("prefix", sso.CachePrefix, "Token store key prefix")
	consume := cmd.Flags.Bool("consume", false, "Delete the token after reading it")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if cmd.Flags.NArg() != 1 {
			return fmt.Errorf("exactly one token is required")
		}
		token := cmd.Flags.Arg(0)

		s, ctx, cancel, err := store.open(env)
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		key := sso.CacheKey(*prefix, token)
		var tok *sso.SSOToken
		if *consume {
			tok, err = s.GetDel(ctx, key)
		} else {
			tok, err = s.Get(ctx, key)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", sso.ErrTokenStoreUnavailable, err)
		}
		if tok == nil {
			return sso.ErrTokenNotFound
		}

		fmt.Fprintf(env.Out, "uid: %s\n", tok.UID)
		if *consume {
			env.Logger.WithField("credentials", sso.NewCredentials(token, "").String()).Info("Token consumed")
		}
		return nil
	}

	return cmd
}

func newPingCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "ping",
		Description: "Check that the token store is reachable",
		Flags:       flag.NewFlagSet("ping", flag.ContinueOnError),
	}

	store := addStoreFlags(cmd.Flags)

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		s, ctx, cancel, err := store.open(env)
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		if err := s.Ping(ctx); err != nil {
			return fmt.Errorf("%s token store unreachable: %w", s.Backend(), err)
		}
		fmt.Fprintf(env.Out, "%s: ok\n", s.Backend())
		return nil
	}

	return cmd
}

func newSweepCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "sweep",
		Description: "Delete expired tokens from a store without native expiry",
		Flags:       flag.NewFlagSet("sweep", flag.ContinueOnError),
	}

	store := addStoreFlags(cmd.Flags)

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		s, ctx, cancel, err := store.open(env)
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		sweepable, ok := s.(tokenstore.Sweepable)
		if !ok {
			return fmt.Errorf("%s token store expires tokens natively; nothing to sweep", s.Backend())
		}

		removed, err := sweepable.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Fprintf(env.Out, "removed %d expired tokens\n", removed)
		return nil
	}

	return cmd
}
