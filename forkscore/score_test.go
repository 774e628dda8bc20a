package forkscore

import "testing"

func TestDefaultScorerAcceptsLongerConfirmedBranch(t *testing.T) {
	s := NewDefaultScorer(DefaultWeights)
	local := Snapshot{Height: 10, WorkProxy: 10}
	candidate := Snapshot{Height: 12, WorkProxy: 12, PeerConsensusRatio: 0.8}

	if !s.AcceptFork(local, candidate) {
		t.Fatal("expected candidate ahead in height/work with strong peer consensus to be accepted")
	}
}

func TestDefaultScorerRejectsShorterBranch(t *testing.T) {
	s := NewDefaultScorer(DefaultWeights)
	local := Snapshot{Height: 10, WorkProxy: 10}
	candidate := Snapshot{Height: 8, WorkProxy: 8, PeerConsensusRatio: 0.2}

	if s.AcceptFork(local, candidate) {
		t.Fatal("expected a strictly shorter candidate branch to be rejected")
	}
}

func TestDefaultScorerIsPureAndDeterministic(t *testing.T) {
	s := NewDefaultScorer(DefaultWeights)
	local := Snapshot{Height: 5, WorkProxy: 5, TipTimestamp: 100}
	candidate := Snapshot{Height: 5, WorkProxy: 5, TipTimestamp: 200, PeerConsensusRatio: 0.9, Whitelisted: true}

	a := s.AcceptFork(local, candidate)
	b := s.AcceptFork(local, candidate)
	if a != b {
		t.Fatal("AcceptFork must be a pure function of its inputs")
	}
}

func TestDefaultScorerWhitelistBonusCanTipEqualHeightDecision(t *testing.T) {
	s := NewDefaultScorer(DefaultWeights)
	local := Snapshot{Height: 5, WorkProxy: 5}
	withoutBonus := Snapshot{Height: 5, WorkProxy: 5, PeerConsensusRatio: 0.5}
	withBonus := withoutBonus
	withBonus.Whitelisted = true

	if s.AcceptFork(local, withoutBonus) {
		t.Fatal("equal-height, modest-consensus candidate should not clear the threshold unassisted")
	}
	if !s.AcceptFork(local, withBonus) {
		t.Fatal("whitelist bonus should be enough to tip an otherwise-marginal equal-height candidate")
	}
}
