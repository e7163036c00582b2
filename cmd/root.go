package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	verbose bool
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Concierge request desk",
	Long: `Concierge lets you request a service from the concierge desk.

Pick a category, fill in its form (flights, VIP lounges, hotels, wine, flowers)
or write a tagged chat message, and continue in the chat of the new request
once the desk has confirmed it.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { closeApp(cmd, nil) },
}

// GetVersion returns the CLI version.
func GetVersion() string { return version }

// Execute runs the root command and exits with a status that reflects the
// failure kind.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// ExecuteContext runs the root command and prints a failure.
func ExecuteContext(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		closeApp(cmd, err)
		PrintError(userMessage(err), err)
	}
	return err
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.concierge.yaml or ~/.concierge/.concierge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
