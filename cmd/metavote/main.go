// metavote is the command line client for the token-locking governance
// ledger: it locks tokens into voting positions, manages their release and
// allocates the resulting voting power to votable objects.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/metapool/go-metavote/config"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version = "development"
)

var rootCmd = &cobra.Command{
	Use:           "metavote",
	Short:         "lock tokens for voting power and vote with it",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"account":       "main.account",
	"key-file":      "main.key-file",
	"yes":           "main.yes",
	"metrics":       "main.metrics",
	"metrics-port":  "main.metrics-port",
	"node-url":      "gateway.node-url",
	"contract-id":   "gateway.contract-id",
	"token-id":      "gateway.token-id",
	"poll-interval": "orchestrator.poll-interval",
	"log-encoder":   "logging.log-encoder",
	"log-level":     "logging.app",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "load configuration from file")
	flags.StringP("preset", "p", "mainnet", fmt.Sprintf("start from a named preset, one of: %s", strings.Join(presetNames(), ", ")))
	flags.StringP("account", "a", "", "voter account the client acts for")
	flags.String("key-file", "", "path of the signing key file")
	flags.String("node-url", "", "ledger JSON-RPC endpoint")
	flags.String("contract-id", "", "governance contract account")
	flags.String("token-id", "", "governance token contract account")
	flags.BoolP("yes", "y", false, "skip confirmation prompts")
	flags.Duration("poll-interval", 0, "background refresh interval for status --watch")
	flags.Bool("metrics", false, "serve prometheus metrics")
	flags.Int("metrics-port", 1010, "metrics server port")
	flags.String("log-encoder", "", "log as json instead of plain text")
	flags.String("log-level", "", "app logging level")
}

func presetNames() []string {
	names := make([]string, 0, len(config.Presets()))
	for name := range config.Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadConfig resolves the effective configuration: preset, then config file,
// then explicitly set flags. Flags the user did not touch never override the
// file or preset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	vip := viper.New()

	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if err := config.LoadConfig(file, vip); err != nil {
		return nil, err
	}

	var bindErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := vip.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("binding flags: %w", bindErr)
	}

	conf := config.DefaultConfig()
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		preset, ok := config.Presets()[name]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q, options: %s", name, strings.Join(presetNames(), ", "))
		}
		conf = preset
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if file != "" {
		conf.SetConfigFile(file)
	}
	return &conf, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
