package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func reindexCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the chunk index for all of an agent's memory documents",
		Description: "Run after switching the embedding model: stored vectors of " +
			"another dimension are ignored by search until their documents are reindexed.",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			agentID, err := cfg.agent()
			if err != nil {
				return err
			}

			svc, err := cfg.newService(ctx)
			if err != nil {
				return err
			}
			defer svc.shutdown()

			result, err := svc.uc.Reindex(ctx, agentID)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, result)
			return nil
		},
	}
}
