package cli

import (
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
	"github.com/spf13/cobra"

	"microwin/platform/shutdown"
	"microwin/web"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and web page",
	Long:  `Serve the task API and the single-page UI. Stops gracefully on SIGINT or SIGTERM.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (env MICROWIN_ADDRESS, default :8000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}

	s := rweb.NewServer(rweb.ServerOptions{
		Address: a.cfg.Address,
		Verbose: true,
	})

	// Add middleware for request logging
	s.Use(rweb.RequestInfo)

	web.SetupRoutes(s, a.service)

	done := make(chan struct{})
	shutdown.InitShutdownService(done, shutdown.DefaultGracePeriod)
	shutdown.RegisterHook("record store", func(time.Duration) error {
		return a.Close()
	})

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run()
	}()

	logger.Info("MicroWin server starting", "address", a.cfg.Address, "provider", a.cfg.Provider, "driver", a.cfg.DBDriver)

	select {
	case err := <-runErr:
		a.Close()
		return serr.Wrap(err, "server stopped")
	case <-done:
		logger.Info("MicroWin server stopped")
		return nil
	}
}
