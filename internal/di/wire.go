//go:build wireinject
// +build wireinject

package di

import (
	"ArbBoard/internal/usecase"
	"ArbBoard/pkg/config"
	"ArbBoard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires the HTTP service, the optional ingest consumer and
// their clients. The cleanup closes clients in reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}

// InitializeSignalService wires only what a one-shot compute needs.
func InitializeSignalService(cfg *config.Config) (*usecase.SignalService, func(), error) {
	wire.Build(infraSet)
	return nil, nil, nil
}
