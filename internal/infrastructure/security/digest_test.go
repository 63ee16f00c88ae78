package security

import "testing"

func TestDigest_KnownVector(t *testing.T) {
	t.Parallel()

	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Digest("abc"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDigest_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	var d SHA256Digester
	if d.Digest("tok") != d.Digest("tok") {
		t.Fatalf("expected deterministic digest")
	}
	if d.Digest("tok-a") == d.Digest("tok-b") {
		t.Fatalf("expected distinct digests")
	}
	if len(d.Digest("")) != 64 {
		t.Fatalf("expected 64 hex chars")
	}
}
