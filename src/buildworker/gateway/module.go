// Package gateway provides the outbound clients of the worker.
package gateway

import (
	controllerclient "github.com/uber/incbuild/src/buildworker/gateway/controller-client"
	"go.uber.org/fx"
)

// Module provides all gateways.
var Module = fx.Options(
	controllerclient.Module,
)
