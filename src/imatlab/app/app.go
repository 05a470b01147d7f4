// Package app assembles the kernel's dependency graph.
package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/djoshea/imatlab/src/imatlab/controller/execwatch"
	"github.com/djoshea/imatlab/src/imatlab/controller/kernel"
	"github.com/djoshea/imatlab/src/imatlab/gateway/langserver"
	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	"github.com/djoshea/imatlab/src/imatlab/internal/core"
	"github.com/djoshea/imatlab/src/imatlab/internal/executor"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"github.com/djoshea/imatlab/src/imatlab/internal/process"
	"github.com/djoshea/imatlab/src/imatlab/internal/serverinfofile"
	"github.com/djoshea/imatlab/src/imatlab/repository/document"
)

// Module defines the imatlab kernel application module.
var Module = fx.Options(
	langserver.Module, // outbounds
	kernel.Module,
	execwatch.Module,
	document.Module,
	process.Module,
	fs.Module,
	executor.Module,
	clock.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "imatlab-kernel",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	// The kernel controller is the root of the object graph; constructing
	// it pulls up the gateway, watchdog, and their lifecycles.
	fx.Invoke(func(kernel.Controller) {}),
)
