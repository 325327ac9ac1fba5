package cli

import (
	"context"

	"github.com/m-mizutani/mnemo/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve save_memory and recall_memory over MCP stdio",
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

			server := mcp.New(svc.uc, svc.guard, agentID, mcp.WithChannel(cfg.channelContext()))
			return server.Run(ctx)
		},
	}
}
