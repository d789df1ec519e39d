// internal/processor/service/module.go
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/orderflow/coordinator/internal/domain/deliverypb"
	"github.com/orderflow/coordinator/internal/domain/notify"
	"github.com/orderflow/coordinator/internal/domain/orderqueue"
	"github.com/orderflow/coordinator/internal/domain/orderstate"
	"github.com/orderflow/coordinator/internal/domain/proposalupdate"
	"github.com/orderflow/coordinator/internal/domain/scheduler"
	"github.com/orderflow/coordinator/internal/domain/sweeper"
	"github.com/orderflow/coordinator/internal/platform/broker"
	"github.com/orderflow/coordinator/internal/platform/config"
	"github.com/orderflow/coordinator/internal/platform/grpcserver"
	"github.com/orderflow/coordinator/internal/platform/httpserver"
	"github.com/orderflow/coordinator/internal/processor/followup"
	"github.com/orderflow/coordinator/internal/processor/httpapi"
	"github.com/orderflow/coordinator/internal/processor/queuefeed"
	"github.com/orderflow/coordinator/internal/processor/sellerselect"
	"github.com/orderflow/coordinator/internal/processor/streamhandler"
)

// Module wires every processor-side component into one fx.App, mirroring
// the teacher's internal/service/module.go + internal/handler/grpc/module.go
// two-layer shape (domain providers, then RPC/HTTP registration via Invoke).
var Module = fx.Module(
	"processor",

	fx.Provide(
		provideOrderStateManager,
		provideOrderQueueManager,
		provideScheduler,
		providePersistenceResolver,
		provideDistanceOracle,
		provideSelector,
		provideNotifyPublisher,
		provideFacade,
		provideProposalUpdateService,
		provideStreamHandler,
		provideFollowUpHandler,
		provideDelivery,
		provideQueueFeedPublisher,
		provideQueueFeedSubscriber,
		provideHTTPHandler,
		provideGRPCServer,
		provideHTTPServer,
	),

	fx.Invoke(
		registerDeliveryServer,
		registerSweeper,
		registerScheduler,
		registerQueueFeedConsumer,
		runServers,
	),
)

func provideOrderStateManager() orderstate.Manager {
	return orderstate.New()
}

func provideOrderQueueManager(cfg *config.Config) orderqueue.Manager {
	return orderqueue.NewManager(cfg.QueueCapacity)
}

func provideScheduler(cfg *config.Config) scheduler.Scheduler {
	return scheduler.New(cfg.MaxConcurrentTasks)
}

func providePersistenceResolver(cfg *config.Config) sellerselect.PersistenceResolver {
	timeout := time.Duration(cfg.DistanceOracleTimeoutSeconds) * time.Second
	return sellerselect.NewHTTPResolver(cfg.PersistenceFacadeURL, timeout)
}

func provideDistanceOracle(cfg *config.Config) sellerselect.DistanceOracle {
	timeout := time.Duration(cfg.DistanceOracleTimeoutSeconds) * time.Second
	return sellerselect.NewHTTPDistanceOracle(cfg.DistanceOracleURL, timeout)
}

func provideSelector(resolver sellerselect.PersistenceResolver, oracle sellerselect.DistanceOracle) sellerselect.Selector {
	return sellerselect.New(resolver, oracle, 256)
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

func provideStreamHandler(
	states orderstate.Manager,
	queues orderqueue.Manager,
	selector sellerselect.Selector,
	notifier notify.Publisher,
	updates proposalupdate.Service,
	logger *slog.Logger,
	cfg *config.Config,
) *streamhandler.Handler {
	expiry := time.Duration(cfg.OrderExpiryMinutes) * time.Minute
	return streamhandler.New(states, queues, selector, notifier, updates, logger, expiry, cfg.FindMaxSellers)
}

func provideFollowUpHandler(states orderstate.Manager, updates proposalupdate.Service) *followup.Handler {
	return followup.New(states, updates)
}

func provideDelivery(stream *streamhandler.Handler, reply *followup.Handler) *Delivery {
	return New(stream, reply)
}

// provideQueueFeedPublisher opens a dedicated AMQP publisher for C2's
// cross-replica queue feed, independent of the notify publisher's
// connection so a slow notify consumer never backs up queue delivery.
func provideQueueFeedPublisher(cfg *config.Config, logger *slog.Logger) (queuefeed.Publisher, error) {
	pub, err := broker.NewPublisher(cfg.AMQPURL, logger)
	if err != nil {
		return nil, err
	}
	return queuefeed.NewPublisher(pub), nil
}

// provideQueueFeedSubscriber gives this replica its own queue, suffixed
// by a per-process id, so the topic fans out to every running
// processor instance rather than load-balancing across them.
func provideQueueFeedSubscriber(cfg *config.Config, logger *slog.Logger) (message.Subscriber, error) {
	return broker.NewSubscriber(cfg.AMQPURL, uuid.New().String(), logger)
}

func provideHTTPHandler(
	states orderstate.Manager,
	queues orderqueue.Manager,
	updates proposalupdate.Service,
	notifier notify.Publisher,
	feed queuefeed.Publisher,
	logger *slog.Logger,
	cfg *config.Config,
) *httpapi.Handler {
	expiry := time.Duration(cfg.OrderExpiryMinutes) * time.Minute
	return httpapi.New(states, queues, updates, notifier, feed, logger, expiry)
}

func provideGRPCServer(cfg *config.Config, logger *slog.Logger) *grpcserver.Server {
	addr := fmtAddr(cfg.GRPCPort)
	return grpcserver.New(addr, logger)
}

func provideHTTPServer(handler *httpapi.Handler, cfg *config.Config, logger *slog.Logger) *httpserver.Server {
	addr := fmtAddr(cfg.HTTPPort)
	return httpserver.New(addr, handler.Routes(), logger)
}

func registerDeliveryServer(srv *grpcserver.Server, delivery *Delivery) {
	deliverypb.RegisterDeliveryServer(srv.Server, delivery)
}

// registerSweeper starts C4 bound to the processor's state/queue
// managers, stopping it when the app shuts down. Also wires C7's
// per-stream cancellation into the sweeper's expiry hook.
func registerSweeper(
	lc fx.Lifecycle,
	states orderstate.Manager,
	queues orderqueue.Manager,
	updates proposalupdate.Service,
	stream *streamhandler.Handler,
	logger *slog.Logger,
	cfg *config.Config,
) {
	interval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	var sw *sweeper.Sweeper
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sw = sweeper.New(states, queues, updates, logger,
				sweeper.WithInterval(interval),
				sweeper.OnExpire(stream.CancelOrderTasks),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			if sw != nil {
				sw.Stop()
			}
			return nil
		},
	})
}

// registerScheduler drains C3's worker pool on shutdown and periodically
// ages out completed task outcomes so results never grows unbounded.
func registerScheduler(lc fx.Lifecycle, sched scheduler.Scheduler, cfg *config.Config) {
	maxAge := time.Duration(cfg.TaskResultCleanupHours) * time.Hour
	interval := time.Hour
	stopCh := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
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

// registerQueueFeedConsumer starts the cross-replica C2 fan-out
// consumer so a proposal submitted on one node still reaches the
// order's active stream on whichever node holds it.
func registerQueueFeedConsumer(lc fx.Lifecycle, sub message.Subscriber, queues orderqueue.Manager, logger *slog.Logger) {
	queuefeed.StartConsumer(lc, sub, queues, logger)
}

func runServers(lc fx.Lifecycle, grpcSrv *grpcserver.Server, httpSrv *httpserver.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := grpcSrv.Start(ctx); err != nil {
				return err
			}
			return httpSrv.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if err := httpSrv.Stop(ctx); err != nil {
				return err
			}
			return grpcSrv.Stop(ctx)
		},
	})
}
