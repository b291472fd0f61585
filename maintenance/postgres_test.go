package maintenance

import "testing"

func TestAdvisoryKeyIsStable(t *testing.T) {
	a := advisoryKey("warden_maintenance")
	b := advisoryKey("warden_maintenance")
	if a != b {
		t.Fatalf("same token produced different keys: %d %d", a, b)
	}
	if advisoryKey("other_token") == a {
		t.Fatalf("distinct tokens collided")
	}
}
