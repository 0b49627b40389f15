// Command pricetest fetches a live 24h snapshot and prints the fixed-point
// representation of each quote. Useful for eyeballing the int64 price path
// without starting the full application.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"papertrade/internal/feed"
	"papertrade/internal/infra"
)

func main() {
	restURL := flag.String("url", "https://api.binance.com/api/v3/ticker/24hr", "24h ticker endpoint")
	symbols := flag.String("symbols", "BTCUSDT,ETHUSDT", "comma-separated symbols")
	flag.Parse()

	fmt.Println("=== papertrade Fixed-Point Quote Fetcher ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := feed.NewSnapshotClient(*restURL, infra.NewNoise(0))
	quotes := client.Fetch(ctx, strings.Split(*symbols, ","))

	for _, q := range quotes {
		fmt.Printf("📊 %s\n", q.Symbol)
		fmt.Printf("   PriceMicros:  %d\n", q.PriceMicros)
		fmt.Printf("   Display:      $%s\n", q.PriceMicros)
		fmt.Printf("   24h range:    $%s .. $%s\n", q.Low24hMicros, q.High24hMicros)
		fmt.Printf("   24h change:   %d micros\n", q.Change24hMicros)
		fmt.Println()
	}

	fmt.Println("✅ All prices handled as int64, no float64 in the path!")
}
