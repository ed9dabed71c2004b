// wardenprobe is a one-shot liveness check for container HEALTHCHECK
// directives and CI smoke tests: exit 0 when the target is healthy, exit 1
// otherwise. Transient failures are retried with exponential backoff before
// the verdict.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/probe"
	"github.com/app-tools/appwarden/pkg/status"
	"github.com/app-tools/appwarden/pkg/warden"

	backoff "github.com/cenkalti/backoff/v4"
	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config  string        `long:"config" short:"c" description:"warden configuration file to derive the probe target from"`
	URL     string        `long:"url" description:"probe this URL directly, ignoring any configuration"`
	Direct  bool          `long:"direct" description:"probe the service's own health endpoint instead of the warden admin endpoint"`
	Timeout time.Duration `long:"timeout" default:"5s" description:"timeout for a single probe attempt"`
	Retries uint64        `long:"retries" default:"2" description:"retries before reporting failure"`
	Quiet   bool          `long:"quiet" short:"q" description:"suppress output, report through the exit code only"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	target, err := resolveTarget(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wardenprobe: %v\n", err)
		os.Exit(1)
	}

	prober, err := probe.New(probe.Config{
		Type:    probe.TypeHTTP,
		HTTP:    probe.HTTPConfig{URL: target},
		Timeout: opts.Timeout,
	}, "wardenprobe", logging.NewLogger("", logging.LogFuncs{}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "wardenprobe: %v\n", err)
		os.Exit(1)
	}

	var lastMessage string
	operation := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()

		result := prober.Check(ctx)
		if !result.Healthy {
			lastMessage = result.Message
			return fmt.Errorf("probe failed: %s", result.Message)
		}
		lastMessage = result.Message
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.Retries)
	if err := backoff.Retry(operation, policy); err != nil {
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "unhealthy: %s: %s\n", target, lastMessage)
		}
		os.Exit(1)
	}

	if !opts.Quiet {
		fmt.Printf("healthy: %s: %s\n", target, lastMessage)
	}
}

// resolveTarget picks the URL to probe: an explicit --url wins, then the
// configuration file, then the default admin endpoint.
func resolveTarget(opts flagOptions) (string, error) {
	if opts.URL != "" {
		return opts.URL, nil
	}

	if opts.Config == "" {
		if opts.Direct {
			return "", fmt.Errorf("--direct requires --config to locate the service")
		}
		return "http://" + status.DefaultAddress + "/healthz", nil
	}

	config, err := warden.LoadConfigFromFile(opts.Config)
	if err != nil {
		return "", err
	}

	if opts.Direct {
		return config.Service.ProbeURL(), nil
	}
	return "http://" + config.Warden.AdminAddress + "/healthz", nil
}
