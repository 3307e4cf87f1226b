package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settingAnnotation links a flag to a settings key
const settingAnnotation = "benthic_setting"

// bindSetting marks flag as override of settings key. Binding itself happens in bindFlags,
// so that several subcommands may expose flags for the same key.
func bindSetting(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, settingAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// bindFlags binds annotated flags of the executing command to viper keys
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		keys, ok := flag.Annotations[settingAnnotation]
		if !ok || len(keys) == 0 || bindErr != nil {
			return
		}
		if err := v.BindPFlag(keys[0], flag); err != nil {
			bindErr = errors.Wrapf(err, "Can't bind flag '%s'", flag.Name)
		}
	})
	return bindErr
}
