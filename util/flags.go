package util

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to flag names to build their env variable names.
const EnvPrefix = "ICEAGENT_"

// SetFlagsFromEnvVars reads and updates persistent flag values from environment variables with
// prefix ICEAGENT_. Flags set explicitly on the command line keep their value.
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		// E.g. log-level -> ICEAGENT_LOG_LEVEL
		envName := EnvPrefix + flagNameToUpper(f.Name)
		value, present := os.LookupEnv(envName)
		if !present {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envName, err)
		}
	})
}

// flagNameToUpper converts a flag name to its corresponding base env name
// replacing dashes by underscores and making the result uppercase
// E.g. stun-listen -> STUN_LISTEN
func flagNameToUpper(cmdFlag string) string {
	return strings.ToUpper(strings.ReplaceAll(cmdFlag, "-", "_"))
}
