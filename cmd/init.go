package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/kbchat/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default kbchat configuration",
	Long:  `Writes a config file with default settings and a freshly generated encryption key for per-bot credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		cfg := config.DefaultConfig()
		key, err := randomKey()
		if err != nil {
			return err
		}
		cfg.EncryptionKey = key

		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgFile)
		fmt.Printf("Set %s or openai_api_key for the default credential.\n", config.APIKeyEnvVar(config.ProviderOpenAI))
		return nil
	},
}

func randomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
