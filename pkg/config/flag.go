package config

import (
	"fmt"
	"log/slog"
)

// Flag loads the configuration file specified on the command line into Config.
// Flags parsed after it override the values from the file.
type Flag struct {
	File   string
	Config *Configuration
	IsSet  bool
}

func (f *Flag) Set(path string) error {
	cfg, err := FromFile(path)
	if err != nil {
		return err
	}

	slog.Debug(fmt.Sprintf("loaded configuration from %s", path))

	f.File = path
	*f.Config = cfg
	f.IsSet = true

	return nil
}

func (f *Flag) String() string {
	return f.File
}
