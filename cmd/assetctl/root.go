package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLI is the assetctl command tree together with its configuration.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	logger    *slog.Logger
}

// NewCLI creates the command tree.
func NewCLI() *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		logger:    slog.Default(),
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// Execute runs the command tree.
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("ASSETCTL_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("assetctl")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.assetctl")
	}

	cli.viperInst.AutomaticEnv()
	cli.viperInst.SetEnvPrefix("ASSETCTL")

	// --always-new-id -> ASSETCTL_ALWAYS_NEW_ID
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read config file if it exists (ignore errors)
	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "assetctl",
		Short: "Inspect, format and clean asset YAML documents",
		Long: `assetctl works on asset documents and package directories.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (ASSETCTL_*)
3. Configuration file (ASSETCTL_CONFIG, ./assetctl.yaml or ~/.assetctl/assetctl.yaml)

Examples:
  # Check that documents are in canonical form
  assetctl fmt --check Materials/*.yaml

  # Print one member of a document
  assetctl doc get Materials/Wood.yaml Layers.0

  # Renumber duplicated assets of a package
  assetctl clean --dry-run ./Assets`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cli.viperInst, cmd.Flags())

			logger, err := initLogging(
				cli.viperInst.GetString("log-level"),
				cli.viperInst.GetBool("verbose"),
				cmd.ErrOrStderr(),
			)
			if err != nil {
				return NewFileError("initialize logging", err, CommonSuggestions.CheckPerms)
			}
			cli.logger = logger
			slog.SetDefault(logger)
			return nil
		},
	}

	flags := cli.rootCmd.PersistentFlags()
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Also write log records to stderr")
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newFmtCommand(),
		cli.newDocCommand(),
		cli.newCleanCommand(),
	)
}

// bindFlags binds every flag, local and inherited, so that viper resolves
// flag values over environment and config file values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}
