package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func recallCommand() *cli.Command {
	var (
		cfg      config
		query    string
		date     string
		limit    int64
		maxChars int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language query for semantic search",
			Destination: &query,
		},
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Calendar date (YYYY-MM-DD) to read that day's log",
			Destination: &date,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Max search results",
			Destination: &limit,
		},
		&cli.IntFlag{
			Name:        "max-chars",
			Usage:       "Max output characters",
			Destination: &maxChars,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "recall",
		Usage: "Recall memory by meaning or by date",
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
				fmt.Fprintln(c.Root().Writer, memory.DenialMessage("recall_memory"))
				return nil
			}

			result, err := svc.uc.Recall(ctx, memory.RecallInput{
				AgentID:  agentID,
				Query:    query,
				Date:     date,
				Limit:    int(limit),
				MaxChars: int(maxChars),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, result)
			return nil
		},
	}
}
