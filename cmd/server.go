package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/frontdesk/internal/audit"
	"github.com/ziadkadry99/frontdesk/internal/dashboard"
	"github.com/ziadkadry99/frontdesk/internal/intake"
	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/notifications"
	"github.com/ziadkadry99/frontdesk/internal/profile"
	"github.com/ziadkadry99/frontdesk/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the help desk HTTP server and timeout sweeper",
	Long: `Starts the frontdesk server: the intake and supervisor REST API, the
live supervisor dashboard, and the sweeper that closes overdue requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := dashboard.NewHub(logger)
		a, err := openApp(ctx, hub)
		if err != nil {
			return err
		}
		defer a.Close()
		defer hub.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		}, a.db, logger)
		registerAllRoutes(srv, a, hub)

		sweeper := lifecycle.NewSweeper(a.engine, cfg.SweepInterval(), logger)

		logger.Info("frontdesk server starting",
			zap.String("version", Version),
			zap.Int("port", port),
			zap.String("database", a.db.Path()),
			zap.Duration("timeout", cfg.Timeout()))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error { return sweeper.Run(gctx) })
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("frontdesk server stopped")
		return nil
	},
}

// registerAllRoutes wires every feature's routes onto the server router.
func registerAllRoutes(srv *server.Server, a *app, hub *dashboard.Hub) {
	r := srv.Router()

	lifecycle.RegisterRoutes(r, a.engine)
	knowledge.RegisterRoutes(r, a.knowledge, a.matcher)
	intake.RegisterRoutes(r, a.desk)
	notifications.RegisterRoutes(r, a.notifications)
	audit.RegisterRoutes(r, a.audit)
	profile.RegisterRoutes(r, a.profile)

	dash := dashboard.New(a.engine, hub, logger)
	dash.RegisterRoutes(r)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
