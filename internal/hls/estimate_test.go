package hls

import (
	"context"
	"errors"
	"testing"
)

type fakeProber struct {
	sizes  map[string]int64
	err    error
	probes []string
}

func (f *fakeProber) ProbeSize(_ context.Context, uri string) (int64, error) {
	f.probes = append(f.probes, uri)
	if f.err != nil {
		return 0, f.err
	}
	return f.sizes[uri], nil
}

func mediaWithSegments(n int, rangeLengths []int64) *MediaPlaylist {
	m := &MediaPlaylist{}
	for i := 0; i < n; i++ {
		seg := Segment{URI: segName(i)}
		if rangeLengths != nil {
			seg.Range = &ByteRange{Length: rangeLengths[i]}
		}
		m.Segments = append(m.Segments, seg)
	}
	return m
}

func segName(i int) string {
	return "seg" + string(rune('0'+i)) + ".ts"
}

func TestEstimateByteRangeSum(t *testing.T) {
	media := mediaWithSegments(3, []int64{100, 200, 300})
	est := Estimate(context.Background(), media, &fakeProber{}, QualityMedium)
	if est.Method != MethodExact {
		t.Fatalf("method = %v, want %v", est.Method, MethodExact)
	}
	if est.TotalBytes != 600 {
		t.Errorf("total = %d, want 600", est.TotalBytes)
	}
}

func TestEstimateSampled(t *testing.T) {
	media := mediaWithSegments(10, nil)
	prober := &fakeProber{sizes: map[string]int64{}}
	for _, seg := range media.Segments {
		prober.sizes[seg.URI] = 1000
	}
	est := Estimate(context.Background(), media, prober, QualityLowest)
	if est.Method != MethodSampled {
		t.Fatalf("method = %v, want %v", est.Method, MethodSampled)
	}
	if est.TotalBytes != 10000 {
		t.Errorf("total = %d, want 10000", est.TotalBytes)
	}
	// Lowest quality samples 3 segments, spread across the list.
	if len(prober.probes) != 3 {
		t.Errorf("probes = %d, want 3", len(prober.probes))
	}
}

func TestEstimatePartialProbeFailures(t *testing.T) {
	media := mediaWithSegments(10, nil)
	// Only one sample reports a size; the divisor is successful probes.
	prober := &fakeProber{sizes: map[string]int64{"seg0.ts": 2000}}
	est := Estimate(context.Background(), media, prober, QualityLowest)
	if est.Method != MethodSampled {
		t.Fatalf("method = %v, want %v", est.Method, MethodSampled)
	}
	if est.TotalBytes != 20000 {
		t.Errorf("total = %d, want 20000 (2000 avg x 10 segments)", est.TotalBytes)
	}
}

func TestEstimateFallback(t *testing.T) {
	media := mediaWithSegments(10, nil)
	prober := &fakeProber{err: errors.New("probe refused")}
	est := Estimate(context.Background(), media, prober, QualityMedium)
	if est.Method != MethodFallback {
		t.Fatalf("method = %v, want %v", est.Method, MethodFallback)
	}
	if est.TotalBytes != 10*1048576 {
		t.Errorf("total = %d, want %d", est.TotalBytes, 10*1048576)
	}
}

func TestEstimateEmptyPlaylist(t *testing.T) {
	est := Estimate(context.Background(), &MediaPlaylist{}, &fakeProber{}, QualityHigh)
	if est.TotalBytes != 0 {
		t.Errorf("total = %d, want 0", est.TotalBytes)
	}
}

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{10, 3, []int{0, 3, 6}},
		{10, 5, []int{0, 2, 4, 6, 8}},
		{2, 8, []int{0, 1}},
		{1, 3, []int{0}},
	}
	for _, tt := range tests {
		got := sampleIndices(tt.total, tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("sampleIndices(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("sampleIndices(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
				break
			}
		}
	}
}

func TestApplyQualityMargin(t *testing.T) {
	tests := []struct {
		quality Quality
		in      int64
		want    int64
	}{
		{QualityLowest, 1000, 1000},
		{QualityMedium, 1000, 1200},
		{QualityHigh, 1000, 1500},
	}
	for _, tt := range tests {
		if got := ApplyQualityMargin(tt.in, tt.quality); got != tt.want {
			t.Errorf("ApplyQualityMargin(%d, %v) = %d, want %d", tt.in, tt.quality, got, tt.want)
		}
	}
}
