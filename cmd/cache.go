package main

import (
	"fmt"

	"UsersAPI/internal/db"
	"UsersAPI/internal/resolver"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the shared count cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Delete every cached count from redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is not set")
		}
		db.InitRedis(cfg.RedisAddr)
		defer db.CloseRedis()

		if err := resolver.FlushCountCache(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("count cache flushed")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}
