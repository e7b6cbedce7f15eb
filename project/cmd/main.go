package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd はサブコマンドをまとめたルートコマンドを作成します
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "order-bot",
		Short:        "Telegram order bot and Mini App backend",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newSignInitDataCmd())
	return root
}
