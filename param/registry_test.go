package param

import "testing"

func Test_Registry_Value_defaultAndOverride(t *testing.T) {
	r := NewRegistry(map[ID]int64{ProposalFee: 100})

	if v := r.Value(ProposalFee, 1); v != 100 {
		t.Fatalf("default = %d, want 100", v)
	}

	if err := r.AppendOverride(ProposalFee, 214, 150); err != nil {
		t.Fatalf("AppendOverride: %v", err)
	}

	if v := r.Value(ProposalFee, 212); v != 100 {
		t.Errorf("before override = %d, want 100", v)
	}
	if v := r.Value(ProposalFee, 214); v != 150 {
		t.Errorf("at override height = %d, want 150", v)
	}
	if v := r.Value(ProposalFee, 10_000); v != 150 {
		t.Errorf("after override = %d, want 150", v)
	}
}

func Test_Registry_AppendOverride_stale(t *testing.T) {
	r := NewRegistry(map[ID]int64{ProposalFee: 100})

	if err := r.AppendOverride(ProposalFee, 200, 150); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := r.AppendOverride(ProposalFee, 200, 200); err == nil {
		t.Fatal("expected ErrStaleOverride for equal height")
	}
	if err := r.AppendOverride(ProposalFee, 150, 200); err == nil {
		t.Fatal("expected ErrStaleOverride for earlier height")
	}
}

func Test_Registry_Value_unknownIsUndefined(t *testing.T) {
	r := NewRegistry(nil)
	if v := r.Value("NOT_A_PARAM", 1); v != Undefined {
		t.Errorf("unknown id = %d, want Undefined", v)
	}
}

func Test_Registry_Enumerate_deterministicOrder(t *testing.T) {
	r := NewRegistry(map[ID]int64{"B": 2, "A": 1, "C": 3})
	got := r.Enumerate()
	if len(got) != 3 || got[0].ID != "A" || got[1].ID != "B" || got[2].ID != "C" {
		t.Fatalf("enumerate order = %v", got)
	}
}
