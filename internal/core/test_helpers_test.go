package core

import (
	"context"
	"testing"
	"time"

	"envmon/internal/infra/kv/memory"
	"envmon/internal/kv"
	"envmon/pkg/domain"
)

var testNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return testNow })
}

func newTestService(t *testing.T, opts ...Option) (*Service, *kv.Store) {
	t.Helper()
	adapter := kv.New(memory.New())
	opts = append([]Option{WithClock(fixedClock())}, opts...)
	return NewService(NewStore(adapter, NewDefaultRulesEngine()), opts...), adapter
}

func mustCreateClient(t *testing.T, svc *Service, taxID string) Client {
	t.Helper()
	c, _, err := svc.CreateClient(context.Background(), Client{
		CompanyName: "測試股份有限公司 " + taxID,
		TaxID:       taxID,
		ContactName: "王小明",
		Phone:       "02-2345-6789",
		Address:     "台北市信義區",
	})
	if err != nil {
		t.Fatalf("create client %s: %v", taxID, err)
	}
	return c
}

func mustCreateProject(t *testing.T, svc *Service, clientID string, points ...SamplingPoint) Project {
	t.Helper()
	p, _, err := svc.CreateProject(context.Background(), Project{
		ClientID:         clientID,
		ProjectName:      "廠區空氣監測",
		MonitoringDate:   "2025-07-01",
		MonitoringDays:   2,
		MonitoringType:   "室內空氣品質",
		MonitoringPoints: len(points),
		SamplingPoints:   points,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func point(id, name string, items ...string) SamplingPoint {
	return SamplingPoint{ID: id, Name: name, Type: domain.PointTypeIndoor, Items: items, ItemCount: len(items)}
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(prefix string) bool {
	for _, call := range c.calls {
		if call == prefix {
			return true
		}
	}
	return false
}

func hasKey(t *testing.T, adapter *kv.Store, key string) bool {
	t.Helper()
	ok, err := adapter.Has(context.Background(), key)
	if err != nil {
		t.Fatalf("has %s: %v", key, err)
	}
	return ok
}
