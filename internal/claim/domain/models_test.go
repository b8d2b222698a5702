package domain

import (
	"testing"

	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
)

func TestParseType(t *testing.T) {
	for _, raw := range []string{"travel", " Fuel ", "MEDICAL", "accommodation", "food", "communication", "other"} {
		if _, ok := ParseType(raw); !ok {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	if _, ok := ParseType("snacks"); ok {
		t.Fatalf("unexpected type accepted")
	}
}

func TestStatusForLevelRoundTrip(t *testing.T) {
	for _, level := range employeedomain.Levels() {
		status := StatusForLevel(level)
		got, ok := status.PendingLevel()
		if !ok || got != level {
			t.Fatalf("round trip failed for %s: %s", level, got)
		}
	}
	if _, ok := StatusApproved.PendingLevel(); ok {
		t.Fatalf("approved has no pending level")
	}
}

func TestStuck(t *testing.T) {
	claim := Claim{Status: StatusPendingL1}
	if !claim.Stuck() {
		t.Fatalf("pending_l1 with no L1 approver should be stuck")
	}

	claim.ChainL1 = "MGR001"
	if claim.Stuck() {
		t.Fatalf("claim with an L1 approver is not stuck")
	}

	claim.Status = StatusApproved
	claim.ChainL1 = ""
	if claim.Stuck() {
		t.Fatalf("terminal claims are never stuck")
	}
}

func TestReplayStatus(t *testing.T) {
	fullChain := employeedomain.ApprovalChain{L1: "A", L2: "B", L3: "C"}
	gapChain := employeedomain.ApprovalChain{L1: "A", L3: "C"}

	cases := []struct {
		name      string
		chain     employeedomain.ApprovalChain
		approvals []Approval
		want      Status
	}{
		{"no approvals", fullChain, nil, StatusPendingL1},
		{"one approval", fullChain, []Approval{
			{Level: employeedomain.LevelL1, Action: ActionApproved},
		}, StatusPendingL2},
		{"full chain approved", fullChain, []Approval{
			{Level: employeedomain.LevelL1, Action: ActionApproved},
			{Level: employeedomain.LevelL2, Action: ActionApproved},
			{Level: employeedomain.LevelL3, Action: ActionApproved},
		}, StatusApproved},
		{"rejection is terminal", fullChain, []Approval{
			{Level: employeedomain.LevelL1, Action: ActionApproved},
			{Level: employeedomain.LevelL2, Action: ActionRejected},
		}, StatusRejected},
		{"gap chain skips L2", gapChain, []Approval{
			{Level: employeedomain.LevelL1, Action: ActionApproved},
		}, StatusPendingL3},
	}
	for _, tc := range cases {
		got, err := ReplayStatus(tc.chain, tc.approvals)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestReplayStatusRejectsInconsistentRecords(t *testing.T) {
	chain := employeedomain.ApprovalChain{L1: "A", L2: "B"}

	// An L2 decision before L1 was consumed.
	_, err := ReplayStatus(chain, []Approval{
		{Level: employeedomain.LevelL2, Action: ActionApproved},
	})
	if err != ErrReplayMismatch {
		t.Fatalf("expected replay mismatch, got %v", err)
	}

	// Decisions after a terminal state.
	_, err = ReplayStatus(chain, []Approval{
		{Level: employeedomain.LevelL1, Action: ActionRejected},
		{Level: employeedomain.LevelL2, Action: ActionApproved},
	})
	if err != ErrReplayMismatch {
		t.Fatalf("expected replay mismatch after terminal, got %v", err)
	}
}
