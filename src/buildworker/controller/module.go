// Package controller assembles the build logic of the worker.
package controller

import (
	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/controller/engine"
	"github.com/uber/incbuild/src/buildworker/controller/loader"
	"github.com/uber/incbuild/src/buildworker/controller/scope"
	"github.com/uber/incbuild/src/buildworker/controller/session"
	"go.uber.org/fx"
)

var Module = fx.Options(
	descriptor.Module,
	scope.Module,
	engine.Module,
	loader.Module,
	session.Module,
)
