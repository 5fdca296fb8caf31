package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ParseFlagsWithEnvVars parses the command line flags, falling back to environment variables
// named after the flags with the given prefix, e.g. CLEAVE_LOG_LEVEL for -log-level.
// It exits the process when the flags or environment variables are invalid.
func ParseFlagsWithEnvVars(flags *flag.FlagSet, envVarPrefix string) {
	err := Parse(flags, os.Args[1:], os.Environ(), envVarPrefix)
	if err != nil {
		flags.Usage()
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Parse applies the prefixed environment variables to the flags and then parses args.
// Prefixed environment variables that don't correspond to a flag are rejected.
func Parse(flags *flag.FlagSet, args, environ []string, envVarPrefix string) error {
	addLogLevelFlag(flags)

	env := map[string]string{}
	for _, entry := range environ {
		if k, v, ok := strings.Cut(entry, "="); ok && strings.HasPrefix(k, envVarPrefix) {
			env[k] = v
		}
	}

	supportedEnvVars := map[string]struct{}{}
	var err error

	flags.VisitAll(func(f *flag.Flag) {
		envVarName := EnvVarName(envVarPrefix, f.Name)
		f.Usage = fmt.Sprintf("%s (%s)", f.Usage, envVarName)
		supportedEnvVars[envVarName] = struct{}{}

		if value := env[envVarName]; value != "" && err == nil {
			f.DefValue = value
			if e := f.Value.Set(value); e != nil {
				err = fmt.Errorf("invalid environment variable %s value provided: %w", envVarName, e)
			}
		}
	})
	if err != nil {
		return err
	}

	for name := range env {
		if _, ok := supportedEnvVars[name]; !ok {
			return fmt.Errorf("unsupported environment variable provided: %s", name)
		}
	}

	return flags.Parse(args)
}

// EnvVarName returns the name of the environment variable that corresponds to the flag.
func EnvVarName(prefix, flagName string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
