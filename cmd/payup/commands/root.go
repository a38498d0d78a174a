package commands

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/payup/internal/config"
	"github.com/mmynk/payup/pkg/logging"
)

var (
	configPath string
	envPath    string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "payup",
	Short: "PayUp - settle debts between friends",
	Long: `PayUp keeps pairwise balances between friends who split payment requests,
reminds whoever owes money, and records payments made by bank transfer or
through a hosted checkout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envPath)
		if err != nil {
			return err
		}
		if err := logging.Setup(loaded.Log.Level, loaded.Log.Format); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "dotenv file loaded before reading the environment")
}
