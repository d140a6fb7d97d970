package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"envmon/internal/core"
	"envmon/internal/infra/kv/memory"
	"envmon/internal/kv"
	"envmon/internal/seed"
)

var testNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func clock() core.Clock {
	return core.ClockFunc(func() time.Time { return testNow })
}

// newSeededService returns a service over a memory store holding the demo data.
func newSeededService(t *testing.T) *core.Service {
	t.Helper()
	adapter := kv.New(memory.New())
	svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()), core.WithClock(clock()))
	_, err := seed.New(adapter, svc, seed.WithClock(clock())).InitializeData(context.Background())
	require.NoError(t, err)
	return svc
}

func validClientForm(taxID string) ClientForm {
	return ClientForm{
		CompanyName: "台灣測試股份有限公司",
		TaxID:       taxID,
		ContactName: "陳小姐",
		Phone:       "02-2712-3456",
		Email:       "chen@example.com.tw",
		Address:     "台北市中山區南京東路二段1號",
	}
}
