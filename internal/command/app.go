package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"
)

type Deps struct {
	RunLaunch  func(context.Context) error
	RunOpen    func(context.Context, string) error
	RunStatus  func(context.Context) error
	RunStop    func(context.Context, bool) error
	RunServe   func(context.Context) error
	RunHistory func(context.Context, int) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "nvimbridge",
		Usage: "launch and drive a listening Neovim session",
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, deps)
		},
		Commands: []*cli.Command{
			{
				Name:  "launch",
				Usage: "start the editor session per the saved settings",
				Action: func(ctx *cli.Context) error {
					if deps.RunLaunch == nil {
						return errors.New("launch runner is not configured")
					}
					return deps.RunLaunch(ctx.Context)
				},
			},
			{
				Name:      "open",
				Usage:     "open a file in the running session",
				ArgsUsage: "<path>",
				Action: func(ctx *cli.Context) error {
					if deps.RunOpen == nil {
						return errors.New("open runner is not configured")
					}
					if ctx.Args().Len() != 1 {
						return errors.New("open expects exactly one path")
					}
					return deps.RunOpen(ctx.Context, ctx.Args().First())
				},
			},
			{
				Name:  "status",
				Usage: "print session and binary discovery state",
				Action: func(ctx *cli.Context) error {
					if deps.RunStatus == nil {
						return errors.New("status runner is not configured")
					}
					return deps.RunStatus(ctx.Context)
				},
			},
			{
				Name:  "stop",
				Usage: "stop the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "also kill the named tmux session, tracked or not",
					},
				},
				Action: func(ctx *cli.Context) error {
					if deps.RunStop == nil {
						return errors.New("stop runner is not configured")
					}
					return deps.RunStop(ctx.Context, ctx.Bool("all"))
				},
			},
			{
				Name:  "serve",
				Usage: "run the local control API until interrupted",
				Action: func(ctx *cli.Context) error {
					return runServe(ctx.Context, deps)
				},
			},
			{
				Name:  "history",
				Usage: "print recent session transitions",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum rows to print",
						Value: 20,
					},
				},
				Action: func(ctx *cli.Context) error {
					if deps.RunHistory == nil {
						return errors.New("history runner is not configured")
					}
					return deps.RunHistory(ctx.Context, ctx.Int("limit"))
				},
			},
		},
	}
}

func runServe(ctx context.Context, deps Deps) error {
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx)
}
