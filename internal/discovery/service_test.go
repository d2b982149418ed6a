package discovery

import (
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return New(Config{
		Client:       NewClient("https://example.com", "btc-updown", logger),
		PollInterval: time.Minute,
		Logger:       logger,
	})
}

func TestAdmit_ClassifiesLiveAndPremarket(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	live := Candidate{ID: "live-1", UpToken: "u1", DownToken: "d1", Expiry: now.Add(10 * time.Minute)}
	market, ok := svc.admit(live, now)
	if !ok {
		t.Fatal("expected live candidate to be admitted")
	}
	if market.Regime != types.RegimeLive {
		t.Errorf("expected LIVE regime, got %s", market.Regime)
	}

	premarket := Candidate{ID: "pre-1", UpToken: "u2", DownToken: "d2", Expiry: now.Add(25 * time.Minute)}
	market, ok = svc.admit(premarket, now)
	if !ok {
		t.Fatal("expected premarket candidate to be admitted")
	}
	if market.Regime != types.RegimePremarket {
		t.Errorf("expected PREMARKET regime, got %s", market.Regime)
	}
}

func TestAdmit_RejectsOutsideWindow(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	tooFar := Candidate{ID: "far-1", UpToken: "u1", DownToken: "d1", Expiry: now.Add(45 * time.Minute)}
	if _, ok := svc.admit(tooFar, now); ok {
		t.Error("expected candidate beyond the 30 minute window to be rejected")
	}
}

func TestAdmit_RejectsAlreadyExpired(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	expired := Candidate{ID: "expired-1", UpToken: "u1", DownToken: "d1", Expiry: now.Add(-1 * time.Minute)}
	if _, ok := svc.admit(expired, now); ok {
		t.Error("expected already-expired candidate to be rejected")
	}
}

func TestAdmit_DedupsAlreadyNotified(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	c := Candidate{ID: "dup-1", UpToken: "u1", DownToken: "d1", Expiry: now.Add(10 * time.Minute)}
	if _, ok := svc.admit(c, now); !ok {
		t.Fatal("expected first admission to succeed")
	}
	if _, ok := svc.admit(c, now); ok {
		t.Error("expected second admission of the same market id to be rejected")
	}
}

func TestNewMarketsChan(t *testing.T) {
	svc := newTestService(t)
	if svc.NewMarketsChan() == nil {
		t.Fatal("expected non-nil channel")
	}
}
