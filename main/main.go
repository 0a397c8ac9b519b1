/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	main.go: sensortest command line, service management and the run loop.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/takama/daemon"
	"go.uber.org/multierr"

	"github.com/b3nn0/i2csensors/common"
)

const (
	// name of the service
	name        = "sensortest"
	description = "BMP180 barometer and MPU6050 IMU monitor"

	shutdownTimeout = 5 * time.Second
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage runs one daemon command.
func (service *Service) Manage(command string) (string, error) {
	switch command {
	case "install":
		return service.Install("run")
	case "remove":
		return service.Remove()
	case "start":
		return service.Start()
	case "stop":
		return service.Stop()
	case "status":
		return service.Status()
	}
	return "Usage: " + name + " service install | remove | start | stop | status", nil
}

func newRootCmd(newService func() (*Service, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           name,
		Short:         description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	envFile := root.PersistentFlags().String("env", defaultEnvFile, "file with KEY=value settings")
	root.AddCommand(newRunCmd(envFile), newServiceCmd(newService))
	return root
}

func newRunCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the sensors and print one row per interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlags(cmd.Flags()); err != nil {
				return err
			}
			s, err := readSettings(*envFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, cmd.OutOrStdout())
		},
	}
	addSettingsFlags(cmd.Flags())
	return cmd
}

func newServiceCmd(newService func() (*Service, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the " + name + " system service",
	}
	for _, c := range []struct{ use, short string }{
		{"install", "Install a service that runs '" + name + " run'"},
		{"remove", "Remove the service"},
		{"start", "Start the service"},
		{"stop", "Stop the service"},
		{"status", "Show the service status"},
	} {
		command := c.use
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if !common.IsRunningAsRoot() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: managing system services usually requires root")
				}
				service, err := newService()
				if err != nil {
					return err
				}
				status, err := service.Manage(command)
				if err != nil {
					return errors.Wrap(err, status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			},
		})
	}
	return cmd
}

// run polls the sensors on the configured I2C bus until SIGINT or SIGTERM.
func run(ctx context.Context, s settings, out io.Writer) error {
	logger, closeLog := newLogger(s)
	if !common.IsRunningAsRoot() {
		logger.Warn("not running as root, I2C access may fail")
	}

	if err := embd.InitI2C(); err != nil {
		return multierr.Append(errors.Wrap(err, "can't initialize I2C"), closeLog())
	}
	bus := embd.NewI2CBus(s.I2CBus)
	clk := clock.New()
	st := newStation(s, bus, clk, logger, newMetrics())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go common.CPUTempMonitor(ctx, clk, common.CPUTempPath, func(cpuTemp float32) {
		st.metrics.cpuTemp.Set(float64(cpuTemp))
	})

	var srv *http.Server
	if s.MetricsAddr != "" {
		srv = &http.Server{Addr: s.MetricsAddr, Handler: st.handler(), ReadHeaderTimeout: shutdownTimeout}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("metrics server stopped", "addr", s.MetricsAddr, "error", err)
			}
		}()
		logger.Infof("serving metrics on %s", s.MetricsAddr)
	}

	runErr := st.run(ctx, out)
	logger.Info("shutting down")
	st.Close()
	return multierr.Combine(runErr, shutdown(srv), bus.Close(), embd.CloseI2C(), closeLog())
}

func shutdown(srv *http.Server) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	root := newRootCmd(func() (*Service, error) {
		srv, err := daemon.New(name, description, daemon.SystemDaemon)
		if err != nil {
			return nil, err
		}
		return &Service{srv}, nil
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
