package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/idrk/project-data-sync/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := NewProjectSyncCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func NewProjectSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project-sync [command]",
		Short: "project-sync loads project and consultation requests from Qualtrics into Podio.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdRun())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
