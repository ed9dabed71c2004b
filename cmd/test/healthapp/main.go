// healthapp is a stand-in web service for exercising the warden end to end:
// it serves the canonical health endpoint and can simulate slow startup,
// mid-life failure, and self-exit.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Host         string `long:"host" default:"0.0.0.0" description:"address to bind"`
	Port         int    `long:"port" default:"8501" description:"port to listen on"`
	HealthPath   string `long:"health-path" default:"/_stcore/health" description:"health endpoint path"`
	StartupDelay int    `long:"startup-delay" description:"seconds before the health endpoint turns healthy (debug feature)"`
	FailAfter    int    `long:"fail-after" description:"seconds after which the health endpoint turns unhealthy (debug feature)"`
	RunDuration  int    `long:"run-duration" description:"seconds to run before exiting (debug feature)"`
	ExitCode     int    `long:"exit-code" description:"exit code to use when run-duration elapses (debug feature)"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running healthapp, opts: %+v...\n", opts)

	var healthy atomic.Bool
	if opts.StartupDelay > 0 {
		fmt.Printf("Using STARTUP DELAY of %d seconds\n", opts.StartupDelay)
		time.AfterFunc(time.Duration(opts.StartupDelay)*time.Second, func() {
			healthy.Store(true)
			fmt.Printf("healthapp is now healthy\n")
		})
	} else {
		healthy.Store(true)
	}
	if opts.FailAfter > 0 {
		fmt.Printf("Using FAIL AFTER of %d seconds\n", opts.FailAfter)
		time.AfterFunc(time.Duration(opts.FailAfter)*time.Second, func() {
			healthy.Store(false)
			fmt.Printf("healthapp is now unhealthy\n")
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc(opts.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "healthapp serving %s\n", opts.HealthPath)
	})

	server := &http.Server{
		Addr:    net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler: mux,
	}

	go func() {
		fmt.Printf("healthapp listening on %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("healthapp server failed: %v\n", err)
			os.Exit(1)
		}
	}()

	// Enable signal handling
	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}

	if opts.RunDuration > 0 {
		fmt.Printf("Using RUN DURATION of %d seconds\n", opts.RunDuration)
		select {
		case receivedSignal := <-sig:
			fmt.Printf("healthapp received signal: %v\n", receivedSignal)
		case <-time.After(time.Duration(opts.RunDuration) * time.Second):
			fmt.Printf("healthapp run duration elapsed\n")
			if opts.ExitCode != 0 {
				os.Exit(opts.ExitCode)
			}
		}
	} else {
		receivedSignal := <-sig
		fmt.Printf("healthapp received signal: %v\n", receivedSignal)
	}

	server.Close()
	fmt.Printf("healthapp stopped\n")
}
