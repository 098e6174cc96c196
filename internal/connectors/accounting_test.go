package connectors

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsageRecorderCounts(t *testing.T) {
	r := &UsageRecorder{}
	r.Record()
	r.Record()
	r.Record()
	require.Equal(t, int64(3), r.Count())
}

func TestUsageRecorderNilSafe(t *testing.T) {
	var r *UsageRecorder
	r.Record()
	require.Equal(t, int64(0), r.Count())
}

func TestUsageRecorderConcurrent(t *testing.T) {
	r := &UsageRecorder{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Record()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1000), r.Count())
}
