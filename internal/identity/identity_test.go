package identity

import (
	"errors"
	"testing"
)

func TestComputeGlobalID(t *testing.T) {
	got := ComputeGlobalID("eu1", 3)
	if got != "eu1_3" {
		t.Fatalf("ComputeGlobalID = %q, want eu1_3", got)
	}
	if again := ComputeGlobalID("eu1", 3); again != got {
		t.Fatalf("ComputeGlobalID not deterministic: %q vs %q", again, got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	parts, ok := Parse(ComputeGlobalID("us-west", 42))
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if parts.NodeID != "us-west" || parts.LocalUser != 42 {
		t.Fatalf("Parse() = %+v, want us-west/42", parts)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []GlobalID{
		"",
		"eu1",
		"eu1_",
		"_3",
		"eu1_3_4",
		"eu1_x",
		"eu1_-1",
		"eu1_03",
		"eu1_+3",
		"eu.west_1",
		"._1",
	}
	for _, tc := range cases {
		if _, ok := Parse(tc); ok {
			t.Fatalf("Parse(%q) ok = true, want false", tc)
		}
		if tc.Valid() {
			t.Fatalf("%q.Valid() = true, want false", tc)
		}
	}
}

func TestValidateNodeID(t *testing.T) {
	for _, ok := range []string{"eu1", "us-west", "AP3"} {
		if err := ValidateNodeID(ok); err != nil {
			t.Fatalf("ValidateNodeID(%q) = %v, want nil", ok, err)
		}
		if _, parsed := Parse(ComputeGlobalID(ok, 1)); !parsed {
			t.Fatalf("Parse(ComputeGlobalID(%q, 1)) ok = false", ok)
		}
	}
	for _, bad := range []string{"", "node_a", "eu.west", "a.b_c"} {
		if err := ValidateNodeID(bad); !errors.Is(err, ErrInvalidNodeID) {
			t.Fatalf("ValidateNodeID(%q) = %v, want ErrInvalidNodeID", bad, err)
		}
	}
}
