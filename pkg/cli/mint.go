package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/platinummonkey/handoff/pkg/async"
	"github.com/platinummonkey/handoff/pkg/sso"
)

func newMintCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "mint",
		Description: "Issue handoff tokens for one or more user ids",
		Flags:       flag.NewFlagSet("mint", flag.ContinueOnError),
	}

	store := addStoreFlags(cmd.Flags)
	prefix := cmd.Flags.String("prefix", sso.CachePrefix, "Token store key prefix")
	ttl := cmd.Flags.Duration("ttl", sso.DefaultTokenTTL, "How long each token stays redeemable")
	callbackURL := cmd.Flags.String("callback-url", "", "Client callback URL; when set a handoff URL is printed per token")
	redirect := cmd.Flags.String("redirect", "/", "Continuation target embedded in handoff URLs")
	tokenParam := cmd.Flags.String("token-param", sso.DefaultTokenParameter, "Token query parameter name")
	redirectParam := cmd.Flags.String("redirect-param", sso.DefaultRedirectParameter, "Redirect query parameter name")
	workers := cmd.Flags.Int("workers", 4, "Concurrent store writes")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		uids := cmd.Flags.Args()
		if len(uids) == 0 {
			return fmt.Errorf("at least one uid is required")
		}

		s, ctx, cancel, err := store.open(env)
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		issuer := sso.NewIssuer(s, *prefix, *ttl)
		tokens := make([]string, len(uids))

		indexes := make([]int, len(uids))
		for i := range indexes {
			indexes[i] = i
		}

		errs := async.Batch(ctx, indexes, *workers, *store.timeout, func(ctx context.Context, i int) error {
			tok, err := issuer.Issue(ctx, uids[i])
			if err != nil {
				return err
			}
			tokens[i] = tok.Token
			return nil
		})
		for _, err := range errs {
			env.Logger.WithError(err).Error("Failed to mint token")
		}

		clientCfg := sso.ClientConfig{TokenParameter: *tokenParam, RedirectParameter: *redirectParam}
		for i, uid := range uids {
			if tokens[i] == "" {
				continue
			}
			if *callbackURL == "" {
				fmt.Fprintf(env.Out, "%s\t%s\n", uid, tokens[i])
				continue
			}
			handoff, err := sso.HandoffURL(*callbackURL, clientCfg, tokens[i], *redirect)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "%s\t%s\t%s\n", uid, tokens[i], handoff)
		}

		env.Logger.WithFields(map[string]interface{}{
			"issued":  len(uids) - len(errs),
			"failed":  len(errs),
			"backend": s.Backend(),
			"expires": time.Now().Add(issuer.TTL()).UTC().Format(time.RFC3339),
		}).Info("Mint complete")

		if len(errs) > 0 {
			return fmt.Errorf("%d of %d tokens could not be minted", len(errs), len(uids))
		}
		return nil
	}

	return cmd
}
