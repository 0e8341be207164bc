package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addGenerateFlags defines the generation flags on cmd and binds them into
// viper so environment variables and .keyforge.yml can override defaults.
func addGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("output", "o", "./output", "Output root directory")
	flags.BoolP("debug", "d", false, "Verbose engine output")
	flags.Bool("clean", false, "Remove the output root before writing")
	flags.BoolP("watch", "w", false, "Watch the config path and regenerate on change")
	flags.Bool("serve", false, "With --watch, serve the output with live reload")
	flags.Int("port", 7400, "Preview server port")

	bindFlag(flags, "output", "output")
	bindFlag(flags, "debug", "debug")
	bindFlag(flags, "clean", "clean")
	bindFlag(flags, "watch", "watch")
	bindFlag(flags, "serve.enabled", "serve")
	bindFlag(flags, "serve.port", "port")
}

func bindFlag(flags *pflag.FlagSet, key, name string) {
	// Lookup only fails for a typo in the flag name, caught immediately in
	// any test that builds the command.
	if flag := flags.Lookup(name); flag != nil {
		_ = viper.BindPFlag(key, flag)
	}
}
