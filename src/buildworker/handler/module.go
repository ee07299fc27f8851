package handler

import (
	"github.com/uber/incbuild/src/buildworker/controller"
	"github.com/uber/incbuild/src/buildworker/handler/buildworker"
	"github.com/uber/incbuild/src/buildworker/repository/session"
	"go.uber.org/fx"
)

// Module provides the controller message handler into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(session.New),
	fx.Provide(buildworker.New),
	fx.Invoke(func(h buildworker.Handler) {}),
)
