package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
)

func TestStatsScope(t *testing.T) {
	tests := []struct {
		name  string
		stats map[string]interface{}
	}{
		{name: "configured interval", stats: map[string]interface{}{"reportIntervalSeconds": 2}},
		{name: "default interval", stats: map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scope tally.Scope
			fxtest.New(
				t,
				fx.Provide(func() (config.Provider, error) {
					return config.NewStaticProvider(map[string]interface{}{"stats": tt.stats})
				}),
				fx.Provide(newStatsScope),
				fx.Populate(&scope),
			).RequireStart().RequireStop()
			assert.NotNil(t, scope)
		})
	}
}

func TestModule(t *testing.T) {
	assert.NotPanics(t, func() { fx.Options(Module) })
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
