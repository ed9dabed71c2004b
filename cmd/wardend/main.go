package main

import (
	"fmt"
	"os"

	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/warden"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config    string `long:"config" short:"c" description:"path to the warden configuration file" required:"true"`
	Validate  bool   `long:"validate" description:"validate the configuration and exit"`
	LogLevel  string `long:"log-level" description:"override the configured log level (debug, info, warn, error)"`
	LogFormat string `long:"log-format" description:"override the configured log format (console, json)"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if opts.Validate {
		if err := warden.ValidateConfigFile(opts.Config); err != nil {
			fmt.Printf("Configuration is invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
		return
	}

	config, err := warden.LoadConfigFromFile(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		config.Warden.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		config.Warden.LogFormat = opts.LogFormat
	}
	if err := warden.ValidateConfig(config); err != nil {
		fmt.Printf("Configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	backend, sync, err := logging.NewZapLogger(logging.ZapOptions{
		Level:  config.Warden.LogLevel,
		Format: config.Warden.LogFormat,
	})
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewComponentLogger(backend, logPrefix("appwarden"))

	if err := warden.RunWithConfig(config, logger); err != nil {
		logger.Errorf("Warden exited with error: %v", err)
		sync()
		os.Exit(1)
	}
	sync()
}
