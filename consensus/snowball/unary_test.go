package snowball

import "testing"

func TestFinalizesAfterBetaConsecutiveQuorums(t *testing.T) {
	params := Parameters{K: 20, Alpha: 16, Beta: 15}
	c := NewCounter(Accept, params)

	for i := 0; i < params.Beta-1; i++ {
		if c.RecordRound(16, 4) {
			t.Fatalf("finalized early at round %d", i)
		}
	}
	if !c.RecordRound(16, 4) {
		t.Fatal("expected finalization on the beta-th consecutive quorum")
	}
	if !c.Finalized() || c.Preference() != Accept {
		t.Fatalf("got finalized=%v preference=%v", c.Finalized(), c.Preference())
	}
}

func TestFlipsPreferenceOnOppositeMajorityAtZeroConfidence(t *testing.T) {
	c := NewCounter(Accept, DefaultParameters())
	c.RecordRound(5, 15) // disagree > agree, confidence was 0 -> flips to Reject
	if c.Preference() != Reject {
		t.Fatalf("expected flip to Reject, got %v", c.Preference())
	}
	if c.Confidence() != 0 {
		t.Fatalf("confidence must reset to 0 after a flip")
	}
}

func TestNoFlipMidStreak(t *testing.T) {
	c := NewCounter(Accept, DefaultParameters())
	c.RecordRound(16, 4) // confidence -> 1
	if c.Confidence() != 1 {
		t.Fatalf("expected confidence 1, got %d", c.Confidence())
	}
	c.RecordRound(2, 18) // disagree majority but confidence was already 1: no flip, just reset
	if c.Preference() != Accept {
		t.Fatalf("must not flip mid-streak, got %v", c.Preference())
	}
	if c.Confidence() != 0 {
		t.Fatalf("confidence resets to 0 on a failed quorum even without a flip")
	}
}

func BenchmarkCounter_RecordRound(b *testing.B) {
	// Adapted from the teacher's
	// snow/consensus/snowball/consensus_benchmark_test.go SnowballBenchmark:
	// repeatedly apply a fixed alpha-sized quorum and measure steady-state
	// RecordPoll/RecordRound cost.
	params := Parameters{K: 20, Alpha: 15, Beta: 1 << 30}
	c := NewCounter(Accept, params)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecordRound(params.Alpha, params.K-params.Alpha)
	}
}
