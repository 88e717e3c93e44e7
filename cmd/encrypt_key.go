package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/kbchat/internal/tenant"
)

var encryptKeyWith string

var encryptKeyCmd = &cobra.Command{
	Use:   "encrypt-key <api-key>",
	Short: "Encrypt a provider API key for storage as a bot credential",
	Long: `Prints the ciphertext to store in bot_credentials.encrypted_key. The
encryption key defaults to encryption_key from the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := encryptKeyWith
		if key == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			key = cfg.EncryptionKey
		}

		enc, err := tenant.Encrypt(args[0], key)
		if err != nil {
			return err
		}
		fmt.Println(enc)
		return nil
	},
}

func init() {
	encryptKeyCmd.Flags().StringVar(&encryptKeyWith, "key", "", "encryption key (defaults to encryption_key from config)")
	rootCmd.AddCommand(encryptKeyCmd)
}
