package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func replCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "repl",
		Usage: "Interactive save/recall loop",
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

			rl, err := readline.New("mnemo> ")
			if err != nil {
				return err
			}
			defer rl.Close()

			fmt.Fprintln(c.Root().Writer, "Commands: save <text>, recall <query>, log <date>, exit")

			for {
				line, err := rl.Readline()
				if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
					if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
						return nil
					}
					return err
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}

				verb, rest, _ := strings.Cut(line, " ")
				rest = strings.TrimSpace(rest)

				var result string
				switch verb {
				case "exit", "quit":
					return nil

				case "save":
					result, err = withSpinner(func() (string, error) {
						return svc.uc.Save(ctx, memory.SaveInput{
							AgentID: agentID,
							Content: rest,
						})
					})

				case "recall":
					result, err = withSpinner(func() (string, error) {
						return svc.uc.Recall(ctx, memory.RecallInput{
							AgentID: agentID,
							Query:   rest,
						})
					})

				case "log":
					result, err = svc.uc.Recall(ctx, memory.RecallInput{
						AgentID: agentID,
						Date:    rest,
					})

				default:
					result = "unknown command: " + verb
				}

				if err != nil {
					fmt.Fprintf(c.Root().Writer, "error: %v\n", err)
					continue
				}
				fmt.Fprintln(c.Root().Writer, result)
			}
		},
	}
}

// withSpinner shows progress while an embedding-backed call is in flight
func withSpinner(fn func() (string, error)) (string, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Start()
	defer sp.Stop()

	return fn()
}
