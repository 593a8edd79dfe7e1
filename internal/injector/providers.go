package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/vrhand/internal/config"
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/inspector"
)

// App is the process-wide object graph of the simulator binary.
type App struct {
	Logger    *log.Logger
	Bus       bus.EventBus
	Inspector *inspector.Server
}

// ProviderSet builds an App from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideInspector,
	wire.Struct(new(App), "*"),
)

// ProvideLogger creates the root logger at the configured level.
func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(log.ParseLevel(cfg.Sim.LogLevel))
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

// ProvideInspector subscribes the event feed to b. It does not listen until
// Start is called.
func ProvideInspector(b bus.EventBus, l *log.Logger) (*inspector.Server, error) {
	return inspector.New(b, inspector.WithLogger(l.Named("inspector")))
}
