package tp_sl

import (
	"testing"

	"github.com/shopspring/decimal"

	"lotengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func TestNextTrailingStop_FloorsToTick(t *testing.T) {
	cfg := model.PoolConfig{RunnerTrailPct: d("1.0")}

	// 0.520 * 0.99 = 0.5148 -> 0.51
	stop := NextTrailingStop(d("0.520"), cfg, d("0.01"))
	if !stop.Equal(d("0.51")) {
		t.Fatalf("expected stop=0.51, got=%s", stop.String())
	}
}

func TestNextTrailingStop_NoTickKeepsExactLevel(t *testing.T) {
	cfg := model.PoolConfig{RunnerTrailPct: d("2")}
	stop := NextTrailingStop(d("100"), cfg, decimal.Zero)
	if !stop.Equal(d("98")) {
		t.Fatalf("expected stop=98, got=%s", stop.String())
	}
}

func TestNextTrailingStop_MonotonicInHighWater(t *testing.T) {
	cfg := model.PoolConfig{RunnerTrailPct: d("1.5")}
	tick := d("0.001")

	prev := decimal.Zero
	hw := d("0.5")
	step := d("0.0007")
	for i := 0; i < 500; i++ {
		stop := NextTrailingStop(hw, cfg, tick)
		if stop.LessThan(prev) {
			t.Fatalf("stop decreased at hw=%s: prev=%s stop=%s", hw, prev, stop)
		}
		prev = stop
		hw = hw.Add(step)
	}
}

func TestRatchetStop_NoCurrentStop(t *testing.T) {
	stop, moved := RatchetStop(nil, d("0.51"))
	if !moved {
		t.Fatalf("expected moved=true")
	}
	if !stop.Equal(d("0.51")) {
		t.Fatalf("expected stop=0.51, got=%s", stop.String())
	}
}

func TestRatchetStop_NeverLowersStop(t *testing.T) {
	current := d("0.52")
	stop, moved := RatchetStop(&current, d("0.51"))
	if moved {
		t.Fatalf("expected moved=false, stop must not decrease")
	}
	if !stop.Equal(current) {
		t.Fatalf("expected stop unchanged=%s got=%s", current.String(), stop.String())
	}
}

func TestRatchetStop_Raises(t *testing.T) {
	current := d("0.50")
	stop, moved := RatchetStop(&current, d("0.53"))
	if !moved || !stop.Equal(d("0.53")) {
		t.Fatalf("expected raise to 0.53, got=%s moved=%v", stop.String(), moved)
	}
}

func TestRaiseHighWater(t *testing.T) {
	hw, moved := RaiseHighWater(d("1"), d("1.1"))
	if !moved || !hw.Equal(d("1.1")) {
		t.Fatalf("expected hw=1.1 moved, got=%s %v", hw, moved)
	}
	hw, moved = RaiseHighWater(d("1.1"), d("1.05"))
	if moved || !hw.Equal(d("1.1")) {
		t.Fatalf("expected hw unchanged, got=%s %v", hw, moved)
	}
}

func TestShouldTriggerTrailingStop(t *testing.T) {
	if ShouldTriggerTrailingStop(d("0.40"), nil) {
		t.Fatalf("expected no trigger without a stop")
	}
	if !ShouldTriggerTrailingStop(d("0.51"), ptr(d("0.51"))) {
		t.Fatalf("expected trigger when price equals stop")
	}
	if !ShouldTriggerTrailingStop(d("0.50"), ptr(d("0.51"))) {
		t.Fatalf("expected trigger below stop")
	}
	if ShouldTriggerTrailingStop(d("0.515"), ptr(d("0.51"))) {
		t.Fatalf("expected no trigger above stop")
	}
}
