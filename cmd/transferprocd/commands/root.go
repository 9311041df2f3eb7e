package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "transferprocd",
	Short: "Transfer process manager - data transfer orchestration",
	Long:  `Drives data transfer jobs between a consumer and a provider through provisioning, request dispatch, in-flight monitoring, and tear-down.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("store-path", ".artifacts/transferproc.db", "transfer process store path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/provisioning-fsm.db", "provisioning workflow FSM database path")
	rootCmd.PersistentFlags().String("s3-bucket", "transferproc-data", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region")
	rootCmd.PersistentFlags().String("nats-url", "nats://127.0.0.1:4222", "NATS server URL for remote dispatch")
	rootCmd.PersistentFlags().Int("batch-size", 5, "processes polled per active state per tick")
	rootCmd.PersistentFlags().Int("poll-interval-ms", 1000, "initial scheduler tick interval in milliseconds (idle ticks back off toward max-poll-interval-ms)")

	viper.BindPFlag("store-path", rootCmd.PersistentFlags().Lookup("store-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("s3-bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("nats-url", rootCmd.PersistentFlags().Lookup("nats-url"))
	viper.BindPFlag("batch-size", rootCmd.PersistentFlags().Lookup("batch-size"))
	viper.BindPFlag("poll-interval-ms", rootCmd.PersistentFlags().Lookup("poll-interval-ms"))
}
