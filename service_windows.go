//go:build windows

// Windows service integration via github.com/kardianos/service, so the
// daemon keeps rotating wallpapers without a logged-in console session.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kardianos/service"

	"wallgen/core"
	"wallgen/logging"
)

// program implements service.Interface around the daemon's run loop.
type program struct {
	exit chan struct{}
	code int
}

// Start launches the daemon in a goroutine; the service control manager
// expects Start to return promptly.
func (p *program) Start(s service.Service) error {
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.exit)

	_ = godotenv.Load()
	cfg, err := core.LoadConfig()
	if err != nil {
		p.code = core.ExitCodeError
		return
	}
	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFilePath)
	if err != nil {
		p.code = core.ExitCodeError
		return
	}
	defer logger.Sync()

	p.code = run(cfg, logger)
}

// Stop signals the daemon and waits for the run loop to drain.
func (p *program) Stop(s service.Service) error {
	close(serviceStopRequests)
	<-p.exit
	return nil
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "Wallgen",
		DisplayName: "Wallgen Wallpaper Daemon",
		Description: "Generates AI wallpapers on a schedule and applies them as the desktop background.",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	return service.New(&program{}, serviceConfig())
}

// HandleServiceCommand dispatches install/uninstall/start/stop/status
// subcommands. It returns true when a service command was handled and
// main should not continue.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		// Under the service control manager the binary starts with no
		// arguments; service.Run blocks for the process lifetime.
		if !service.Interactive() {
			svc, err := newService()
			if err == nil {
				err = svc.Run()
			}
			if err != nil {
				os.Exit(core.ExitCodeError)
			}
			return true
		}
		return false
	}

	svc, err := newService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	switch args[1] {
	case "install":
		err = svc.Install()
		if err == nil {
			fmt.Println("Service installed")
		}
	case "uninstall", "remove":
		err = svc.Uninstall()
		if err == nil {
			fmt.Println("Service uninstalled")
		}
	case "start":
		err = svc.Start()
		if err == nil {
			fmt.Println("Service started")
		}
	case "stop":
		err = svc.Stop()
		if err == nil {
			fmt.Println("Service stopped")
		}
	case "restart":
		err = svc.Restart()
		if err == nil {
			fmt.Println("Service restarted")
		}
	case "status":
		status, statusErr := svc.Status()
		if statusErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", statusErr)
			os.Exit(core.ExitCodeError)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
	default:
		return false
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	return true
}
