package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kbchat",
	Short: "Multi-tenant knowledge-base chatbot server",
	Long: `kbchat answers website visitors for many tenant bots at once. Each
message is either handled as small talk, answered from the bot's knowledge
base, or refused with the bot's fallback message, and the outcome is logged
and delivered to the bot's webhooks.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "kbchat.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
