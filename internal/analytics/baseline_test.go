package analytics

import (
	"testing"

	"github.com/docpipe/metron/internal/stats"
)

func TestBaselineStore_GetUpsert(t *testing.T) {
	bst := NewBaselineStore()

	if _, ok := bst.Get("k"); ok {
		t.Error("Get() on empty store reported a baseline")
	}

	bst.Upsert("k", stats.Baseline{Count: 10, Mean: 5})
	b, ok := bst.Get("k")
	if !ok || b.Count != 10 || b.Mean != 5 {
		t.Errorf("Get() = %+v (ok=%v)", b, ok)
	}
}

func TestBaselineStore_LoadReplaces(t *testing.T) {
	bst := NewBaselineStore()
	bst.Upsert("stale", stats.Baseline{Count: 1})

	bst.Load(map[string]stats.Baseline{
		"a": {Count: 2},
		"b": {Count: 3},
	})

	if _, ok := bst.Get("stale"); ok {
		t.Error("Load() kept a stale key")
	}
	if bst.Len() != 2 {
		t.Errorf("Len() = %d, want 2", bst.Len())
	}
}
