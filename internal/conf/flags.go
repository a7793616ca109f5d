package conf

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// viperKeyAnnotation is the flag annotation holding the settings key a flag overrides
const viperKeyAnnotation = "slrealizer_viper_key"

// FlagKey marks flag name of fs as an override for the settings key.
// Several commands may map flags to the same key; only the flags of the
// command being executed are bound by BindFlags.
func FlagKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, viperKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("conf: annotate flag %q: %v", name, err))
	}
}

// BindFlags binds every annotated flag of cmd, inherited flags included, to viper
func BindFlags(cmd *cobra.Command) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		keys, ok := f.Annotations[viperKeyAnnotation]
		if !ok || len(keys) == 0 || bindErr != nil {
			return
		}
		if err := viper.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("error binding flag %s: %w", f.Name, err)
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return bindErr
}
