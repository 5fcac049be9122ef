package common

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const verboseFlag = "verbose"

// AddVerbosityFlag registers the repeatable -v flag on cmd and its children.
func AddVerbosityFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().CountP(verboseFlag, "v", "increase log verbosity (-v info, -vv debug)")
}

// Verbosity returns how often -v was given.
func Verbosity(cmd *cobra.Command) int {
	n, err := cmd.Flags().GetCount(verboseFlag)
	if err != nil {
		return 0
	}
	return n
}

// BindFlags binds flags of cmd to config keys, keyed by flag name.
func BindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", flag, err)
		}
	}
	return nil
}
