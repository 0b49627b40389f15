package domain

import (
	"errors"
	"testing"

	"papertrade/pkg/quant"
)

func TestPosition_Increase(t *testing.T) {
	tests := []struct {
		name    string
		qty     []float64
		price   []float64
		wantQty quant.QtySats
		wantAvg quant.PriceMicros
	}{
		{
			"Equal Lots",
			[]float64{1, 1}, []float64{100, 200},
			quant.ToQtySats(2), quant.ToPriceMicros(150),
		},
		{
			"Weighted",
			[]float64{3, 1}, []float64{100, 200},
			quant.ToQtySats(4), quant.ToPriceMicros(125),
		},
		{
			"Fractional",
			[]float64{0.5, 0.5}, []float64{40_000, 50_000},
			quant.ToQtySats(1), quant.ToPriceMicros(45_000),
		},
		{
			// Cost basis beyond the raw int64 price*qty range.
			"Large Lots",
			[]float64{10, 10}, []float64{50_000, 60_000},
			quant.ToQtySats(20), quant.ToPriceMicros(55_000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{
				QtySats:        quant.ToQtySats(tt.qty[0]),
				AvgPriceMicros: quant.ToPriceMicros(tt.price[0]),
			}
			p.Increase(quant.ToQtySats(tt.qty[1]), quant.ToPriceMicros(tt.price[1]))

			if p.QtySats != tt.wantQty {
				t.Errorf("qty = %d, want %d", p.QtySats, tt.wantQty)
			}
			if p.AvgPriceMicros != tt.wantAvg {
				t.Errorf("avg = %d, want %d", p.AvgPriceMicros, tt.wantAvg)
			}
		})
	}
}

func TestPosition_Reduce(t *testing.T) {
	p := &Position{QtySats: quant.ToQtySats(1), AvgPriceMicros: quant.ToPriceMicros(100)}

	if err := p.Reduce(quant.ToQtySats(0.4)); err != nil {
		t.Fatalf("Reduce() = %v", err)
	}
	if want := quant.ToQtySats(0.6); p.QtySats != want {
		t.Errorf("qty = %d, want %d", p.QtySats, want)
	}
	// Cost basis is untouched by a reduce.
	if p.AvgPriceMicros != quant.ToPriceMicros(100) {
		t.Errorf("avg changed on reduce: %d", p.AvgPriceMicros)
	}

	if err := p.Reduce(quant.ToQtySats(1)); !errors.Is(err, ErrOversell) {
		t.Errorf("over-reduce = %v, want ErrOversell", err)
	}
}

func TestPosition_Valuation(t *testing.T) {
	p := &Position{
		QtySats:            quant.ToQtySats(2),
		AvgPriceMicros:     quant.ToPriceMicros(100),
		CurrentPriceMicros: quant.ToPriceMicros(150),
	}

	if got, want := p.MarketValueMicros(), quant.ToPriceMicros(300); got != want {
		t.Errorf("MarketValueMicros() = %d, want %d", got, want)
	}
	if got, want := p.UnrealizedPnLMicros(), int64(quant.ToPriceMicros(100)); got != want {
		t.Errorf("UnrealizedPnLMicros() = %d, want %d", got, want)
	}

	p.CurrentPriceMicros = quant.ToPriceMicros(50)
	if got, want := p.UnrealizedPnLMicros(), int64(-quant.ToPriceMicros(100)); got != want {
		t.Errorf("losing UnrealizedPnLMicros() = %d, want %d", got, want)
	}
}
