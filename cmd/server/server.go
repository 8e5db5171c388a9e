package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/controllers"
	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/env"
	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/middleware"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/states"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var listenAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the HTTP API",
	Long: `Serves the sapcontrol operations and convergence states over HTTP for a remote
orchestrator. Listens on server.address, a comma separated list of host:port and
unix:/path entries.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		env.Daemon = true
		logger.InitLoggerWithMode(&config.Config.Log, true)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := startServer(ctx); err != nil {
			logger.Fatal(err)
		}
	},
}

// NewRouter wires all controllers into a gin engine.
func NewRouter(ctx context.Context) (*gin.Engine, func(), error) {
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return nil, nil, err
	}
	hist, err := root.OpenHistory()
	if err != nil {
		return nil, nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	newRunner := func(opts states.Options) *states.Runner {
		return states.NewRunner(sap, proc.NewExecRunner(), afero.NewOsFs(), opts)
	}
	controllers.NewAPIController(root.Version, sap.Facts()).RegisterRoutes(router)
	controllers.NewInstanceController(sap).RegisterRoutes(router)
	controllers.NewSystemController(sap).RegisterRoutes(router)
	controllers.NewServiceController(sap).RegisterRoutes(router)
	controllers.NewStateController(newRunner, hist, sap.Facts()).RegisterRoutes(router)

	closer := func() {
		if hist != nil {
			if err := hist.Close(); err != nil {
				logger.Warnf("Could not close history: %v", err)
			}
		}
	}
	return router, closer, nil
}

func startServer(ctx context.Context) error {
	gin.SetMode(config.Config.Server.Mode)
	router, closer, err := NewRouter(ctx)
	if err != nil {
		return err
	}
	defer closer()

	addr := listenAddr
	if addr == "" {
		addr = config.Config.Server.Address
	}
	listeners, err := CreateListeners(ParseListenAddrs(addr))
	if len(listeners) == 0 {
		if err == nil {
			err = errors.New("no listen address configured")
		}
		return err
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			logger.Infof("Serving on %s://%s", l.Addr().Network(), l.Addr().String())
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Serve %s: %v", l.Addr(), err)
			}
		}(l)
	}

	<-ctx.Done()
	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

func init() {
	serverCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen addresses (default server.address)")
	root.RootCmd.AddCommand(serverCmd)
}
