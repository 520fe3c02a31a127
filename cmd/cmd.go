package cmd

import (
	"os"

	"github.com/dszqbsm/planning/cmd/crawl"
	"github.com/dszqbsm/planning/version"
	"github.com/spf13/cobra"
)

// crawl子命令按配置爬取一个或多个Idox规划门户，version子命令打印构建信息

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer(cmd.OutOrStdout())
	},
}

func Execute() {
	var rootCmd = &cobra.Command{Use: "planning", SilenceUsage: true}
	rootCmd.AddCommand(crawl.CrawlCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
