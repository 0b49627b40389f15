package domain

import (
	"testing"

	"papertrade/pkg/quant"
)

func TestNewAlert_Direction(t *testing.T) {
	t.Run("UP direction when target > current", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 50000*quant.PriceScale, 45000*quant.PriceScale, false)
		if a.Direction != AlertUp {
			t.Errorf("Expected UP, got %s", a.Direction)
		}
	})

	t.Run("DOWN direction when target < current", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 40000*quant.PriceScale, 45000*quant.PriceScale, false)
		if a.Direction != AlertDown {
			t.Errorf("Expected DOWN, got %s", a.Direction)
		}
	})

	t.Run("UP direction when target = current", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 45000*quant.PriceScale, 45000*quant.PriceScale, false)
		if a.Direction != AlertUp {
			t.Errorf("Expected UP for equal prices, got %s", a.Direction)
		}
	})
}

func TestAlert_Check(t *testing.T) {
	t.Run("UP alert triggers at target", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 50000*quant.PriceScale, 45000*quant.PriceScale, false)
		if !a.Check(50000 * quant.PriceScale) {
			t.Error("Should trigger at target price")
		}
	})

	t.Run("UP alert does not trigger below target", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 50000*quant.PriceScale, 45000*quant.PriceScale, false)
		if a.Check(49000 * quant.PriceScale) {
			t.Error("Should not trigger below target price")
		}
	})

	t.Run("DOWN alert triggers at target", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 40000*quant.PriceScale, 45000*quant.PriceScale, false)
		if !a.Check(40000 * quant.PriceScale) {
			t.Error("Should trigger at target price")
		}
	})

	t.Run("One-shot deactivates after trigger", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 50000*quant.PriceScale, 45000*quant.PriceScale, false)
		if !a.Check(51000 * quant.PriceScale) {
			t.Fatal("first check should trigger")
		}
		if a.Active {
			t.Error("one-shot alert should deactivate")
		}
		if a.Check(52000 * quant.PriceScale) {
			t.Error("deactivated alert should not trigger again")
		}
	})

	t.Run("Persistent stays armed", func(t *testing.T) {
		a := NewAlert("a1", "BTCUSDT", 50000*quant.PriceScale, 45000*quant.PriceScale, true)
		if !a.Check(51000*quant.PriceScale) || !a.Check(52000*quant.PriceScale) {
			t.Error("persistent alert should trigger repeatedly")
		}
		if !a.Active {
			t.Error("persistent alert should stay active")
		}
	})
}
