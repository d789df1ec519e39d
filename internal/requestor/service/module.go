// internal/requestor/service/module.go
package service

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
	"github.com/orderflow/coordinator/internal/domain/scheduler"
	"github.com/orderflow/coordinator/internal/platform/broker"
	"github.com/orderflow/coordinator/internal/platform/config"
	"github.com/orderflow/coordinator/internal/platform/httpserver"
	"github.com/orderflow/coordinator/internal/requestor/httpapi"
	"github.com/orderflow/coordinator/internal/requestor/streamclient"
	"github.com/orderflow/coordinator/internal/requestor/tracking"
)

// Module wires the requestor side: a gRPC client to the processor's
// Delivery service, C9's per-order stream client, C10's tracker, and
// the HTTP ingress, following the teacher's infra/client/di/module.go
// client-lifecycle-via-fx.Hook shape.
var Module = fx.Module(
	"requestor",

	fx.Provide(
		provideGRPCConn,
		provideDeliveryClient,
		provideTracker,
		provideNotifyPublisher,
		provideFacade,
		provideProposalUpdateService,
		provideScheduler,
		provideStreamClient,
		provideHTTPHandler,
		provideHTTPServer,
	),

	fx.Invoke(
		closeGRPCConnOnStop,
		registerScheduler,
		runServer,
	),
)

func provideGRPCConn(cfg *config.Config) (*grpc.ClientConn, error) {
	return grpc.NewClient(cfg.ProcessorGRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func provideDeliveryClient(conn *grpc.ClientConn) deliverypb.DeliveryClient {
	return deliverypb.NewDeliveryClient(conn)
}

func provideTracker() tracking.Tracker {
	return tracking.New()
}

func provideNotifyPublisher(cfg *config.Config, logger *slog.Logger) (notify.Publisher, error) {
	pub, err := broker.NewPublisher(cfg.AMQPURL, logger)
	if err != nil {
		return nil, err
	}
	return notify.New(pub, logger, cfg.GChatWebhookURL), nil
}

func provideFacade(cfg *config.Config) proposalupdate.Facade {
	return proposalupdate.NewHTTPFacade(
		cfg.PersistenceFacadeURL,
		time.Duration(cfg.DistanceOracleTimeoutSeconds)*time.Second,
		cfg.MaxRetries,
		time.Duration(cfg.RetryDelaySeconds*float64(time.Second)),
		cfg.RetryBackoffFactor,
	)
}

func provideProposalUpdateService(facade proposalupdate.Facade, notifier notify.Publisher) proposalupdate.Service {
	return proposalupdate.New(facade, notifier)
}

func provideScheduler(cfg *config.Config) scheduler.Scheduler {
	return scheduler.New(cfg.MaxConcurrentTasks)
}

func provideStreamClient(
	conn deliverypb.DeliveryClient,
	tracker tracking.Tracker,
	notifier notify.Publisher,
	sched scheduler.Scheduler,
	logger *slog.Logger,
	cfg *config.Config,
) *streamclient.Client {
	reconnectDelay := time.Duration(cfg.StreamingReconnectDelaySeconds) * time.Second
	requestTimeout := time.Duration(cfg.GRPCRequestTimeoutSeconds) * time.Second
	return streamclient.New(conn, tracker, notifier, sched, logger, cfg.MaxRetries, reconnectDelay, requestTimeout)
}

func provideHTTPHandler(
	tracker tracking.Tracker,
	client *streamclient.Client,
	conn deliverypb.DeliveryClient,
	updates proposalupdate.Service,
) *httpapi.Handler {
	return httpapi.New(tracker, client, conn, updates)
}

func provideHTTPServer(handler *httpapi.Handler, cfg *config.Config, logger *slog.Logger) *httpserver.Server {
	return httpserver.New(fmtAddr(cfg.HTTPPort), handler.Routes(), logger)
}

func closeGRPCConnOnStop(lc fx.Lifecycle, conn *grpc.ClientConn) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return conn.Close()
		},
	})
}

// registerScheduler drains C3's worker pool on shutdown and periodically
// ages out completed task outcomes — the requestor stores one Outcome
// per InitiateOrder and nothing else ever reclaims that memory.
func registerScheduler(lc fx.Lifecycle, sched scheduler.Scheduler, cfg *config.Config) {
	maxAge := time.Duration(cfg.TaskResultCleanupHours) * time.Hour
	stopCh := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						sched.CleanupOlderThan(maxAge)
					case <-stopCh:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(stopCh)
			sched.Shutdown()
			return nil
		},
	})
}

func runServer(lc fx.Lifecycle, srv *httpserver.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return srv.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return srv.Stop(ctx) },
	})
}
