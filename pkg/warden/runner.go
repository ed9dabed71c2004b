package warden

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/processfile"
	"github.com/app-tools/appwarden/pkg/status"
	"github.com/app-tools/appwarden/pkg/supervisor"
)

// Run loads and validates the configuration file, then supervises the
// configured service until it terminates or the warden receives a shutdown
// signal. The error is nil only for an operator-initiated shutdown.
func Run(configFile string, logger logging.Logger) error {
	logger.Infof("Warden starting, configuration: %s", configFile)

	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	if err := ValidateConfig(config); err != nil {
		return errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}

	logger.Infof("Configuration loaded, service: %s, listen: %s:%d, admin: %s",
		config.Service.Name, config.Service.Host, config.Service.Port, config.Warden.AdminAddress)

	return RunWithConfig(config, logger)
}

// RunWithConfig supervises the service described by an already validated
// configuration.
func RunWithConfig(config *Config, logger logging.Logger) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	options := supervisor.Options{
		GracePeriod:  config.Warden.GracePeriod,
		ProbeTimeout: config.Warden.ProbeTimeout,
	}
	if config.Warden.Probe != nil {
		options.Probe = *config.Warden.Probe
	}

	warden := supervisor.New(config.Service.Name, options, logger)

	adminServer := status.NewServer(config.Warden.AdminAddress, warden, logger)
	if err := adminServer.Start(); err != nil {
		return err
	}
	defer adminServer.Shutdown(context.Background())

	ctx := context.Background()

	handle, err := warden.Start(ctx, config.Service)
	if err != nil {
		return err
	}

	if config.Warden.PIDFile.Enabled {
		remove, err := writePIDFile(config, handle.PID, logger)
		if err != nil {
			warden.Stop(context.Background(), handle)
			return err
		}
		defer remove()
	}

	superviseCtx, cancelSupervise := context.WithCancel(ctx)
	defer cancelSupervise()

	events, err := warden.Supervise(superviseCtx, handle, supervisor.SuperviseOptions{
		Interval:           config.Warden.ProbeInterval,
		UnhealthyThreshold: config.Warden.UnhealthyThreshold,
		InitialDelay:       config.Warden.ProbeInitialDelay,
	})
	if err != nil {
		warden.Stop(context.Background(), handle)
		return err
	}

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	defer signal.Stop(sig)

	logger.Infof("Warden is ready, service under supervision, PID: %d", handle.PID)

	for {
		select {
		case receivedSignal := <-sig:
			logger.Infof("Received signal: %v, stopping service", receivedSignal)

			shutdownErrors := errors.NewErrorCollection()
			if err := warden.Stop(context.Background(), handle); err != nil {
				logger.Errorf("Stop failed, error: %v", err)
				shutdownErrors.Add(err)
			}

			// The supervision stream ends with the terminated event.
			for range events {
			}

			if err := adminServer.Shutdown(context.Background()); err != nil {
				shutdownErrors.Add(err)
			}

			if shutdownErrors.HasErrors() {
				return shutdownErrors.ToError()
			}

			logger.Infof("Warden stopped")
			return nil

		case event, ok := <-events:
			if !ok {
				return errors.NewInternalError("supervision stream closed unexpectedly", nil)
			}
			if event.State == supervisor.StateTerminated {
				return errors.NewInternalError("service terminated unexpectedly: "+event.Reason, nil)
			}
		}
	}
}

// writePIDFile records the supervised service's PID and returns the cleanup
// func. Tooling inside the container reads this file to find the service.
func writePIDFile(config *Config, pid int, logger logging.Logger) (func(), error) {
	manager := processfile.NewManager(processfile.Config{
		BaseDirectory: config.Warden.PIDFile.Directory,
		AppName:       processfile.DefaultAppName,
	}, logger)

	if err := manager.WritePIDFile(config.Service.Name, pid); err != nil {
		return nil, err
	}

	return func() {
		if err := manager.RemovePIDFile(config.Service.Name); err != nil {
			logger.Warnf("Failed to remove PID file, error: %v", err)
		}
	}, nil
}
