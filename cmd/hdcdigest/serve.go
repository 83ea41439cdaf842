package main

import (
	"github.com/spf13/cobra"
)

func serveCMD(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run digests on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := load(nil)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}
