package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func saveCommand() *cli.Command {
	var (
		cfg      config
		content  string
		category string
		target   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "The text to remember",
			Destination: &content,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "Category tag for the entry",
			Value:       "general",
			Destination: &category,
		},
		&cli.StringFlag{
			Name:        "target",
			Aliases:     []string{"t"},
			Usage:       "Save target: log or core",
			Value:       "log",
			Destination: &target,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "save",
		Usage: "Save a memory entry",
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

			if !svc.guard.Allowed(ctx, cfg.channelContext()) {
				fmt.Fprintln(c.Root().Writer, memory.DenialMessage("save_memory"))
				return nil
			}

			result, err := svc.uc.Save(ctx, memory.SaveInput{
				AgentID:  agentID,
				Content:  content,
				Category: category,
				Target:   memory.Target(target),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, result)
			return nil
		},
	}
}
