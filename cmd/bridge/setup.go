package main

import (
	"context"
	"time"

	"mt5-bridge/src/bridge"
	"mt5-bridge/src/config"
	"mt5-bridge/src/gateway"
	"mt5-bridge/src/health"
	"mt5-bridge/src/ingest"
	"mt5-bridge/src/interfaces"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
	"mt5-bridge/src/recorder"
	"mt5-bridge/src/server"
	"mt5-bridge/src/transport"
	"mt5-bridge/src/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// application holds every wired component.
type application struct {
	ticks    chan models.MSnapshot
	commands chan models.MCommand
	replies  chan models.MReply

	ingestor  *ingest.TickIngestor
	watchdog  *ingest.FeedWatchdog
	gateway   *gateway.OrderGateway
	state     *bridge.State
	presenter *bridge.Presenter
	server    *server.APIServer
	exchanger interfaces.IDataExchanger
	health    *health.Server
}

// -----------------------------------------------------------------------------

// setup builds the component graph. Sockets live as long as ctx.
func setup(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*application, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	buffers := cfg.Buffers
	app := &application{
		ticks:    make(chan models.MSnapshot, buffers.TickQueue),
		commands: make(chan models.MCommand, buffers.CommandQueue),
		replies:  make(chan models.MReply, buffers.ReplyQueue),
		health:   health.NewServer(),
	}

	// 1. Feed side
	calendar := utils.GetCalendar(cfg.Market.CalendarMIC)
	app.watchdog = ingest.NewFeedWatchdog(calendar,
		time.Duration(cfg.Market.StaleAfterSeconds)*time.Second,
		appLogger.Named("watchdog"), m)

	sub := transport.NewZMQSubscriber(cfg.Transport.SubEndpoint, cfg.Transport.Topic, appLogger.Named("sub"))
	app.ingestor = ingest.NewTickIngestor(sub,
		time.Duration(cfg.Transport.RetryBackoffMs)*time.Millisecond,
		appLogger.Named("ingestor"), m).
		WithWatchdog(app.watchdog).
		OnConnectionChange(app.health.SetConnected)

	// 2. Command side
	req := transport.NewZMQRequester(ctx, cfg.Transport.ReqEndpoint, appLogger.Named("req"))
	app.gateway = gateway.NewOrderGateway(req, appLogger.Named("gateway"), m)

	// 3. Consumer
	app.state = bridge.NewState(buffers,
		bridge.Queues{Ticks: app.ticks, Commands: app.commands, Replies: app.replies},
		recorder.NewTickRecorder(cfg.Recording.Dir),
		recorder.NewHistoryExporter(cfg.Recording.ExportDir),
		appLogger.Named("state"), m)

	// 4. Presentation
	app.server = server.NewAPIServer(cfg.MConfig, appLogger.Named("api"), nil,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	app.exchanger = app.server
	app.presenter = bridge.NewPresenter(app.state, buffers.IntentQueue,
		time.Duration(buffers.RefreshIntervalMs)*time.Millisecond,
		app.exchanger.Broadcast, appLogger.Named("presenter"))
	app.server.SetController(app.presenter)

	return app, nil
}
