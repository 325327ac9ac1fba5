package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func initCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "init",
		Usage: "Create the agent's core memory document",
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

			result, err := svc.uc.InitCore(ctx, agentID)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, result)
			return nil
		},
	}
}
