package internaldefs

import (
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goAuthClient.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "goauthclient_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	for id := goAuthClient.MetricID(0); id < goAuthClient.MetricCallLatency; id++ {
		if !seen[id] {
			t.Fatalf("metric id %d has no counter definition", id)
		}
	}
	if seen[goAuthClient.MetricCallLatency] {
		t.Fatal("latency is a histogram, not a counter")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
	if len(HistogramBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bounds and suffixes must describe the same buckets")
	}
}
