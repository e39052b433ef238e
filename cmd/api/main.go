package main

import (
	"fmt"
	"os"

	"foodorder/internal/config"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "foodorder"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Food ordering API (cart, checkout, order status)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			//.envは既存の環境変数を上書きしない
			return config.LoadEnvFiles(envFiles...)
		},
		// サブコマンド無しはserve
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env", "../.env"}, "dotenv files to load before reading the environment")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert demo restaurants, menu items and a staff account",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
