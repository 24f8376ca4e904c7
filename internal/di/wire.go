//go:build wireinject
// +build wireinject

package di

import (
	"GoldPredict/pkg/config"
	"GoldPredict/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires the web application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	panic(wire.Build(ServeSet))
}

// InitializeSink wires the submissions sink.
func InitializeSink(cfg *config.Config) (*server.App, func(), error) {
	panic(wire.Build(SinkSet))
}
