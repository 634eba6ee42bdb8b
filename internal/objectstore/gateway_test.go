package objectstore

import "testing"

func TestGenerateKeyDeterministic(t *testing.T) {
	k1 := GenerateKey("tenant-a", "doc-1", 3)
	k2 := GenerateKey("tenant-a", "doc-1", 3)
	if k1 != k2 {
		t.Errorf("expected deterministic key, got %q and %q", k1, k2)
	}

	want := "tenants/tenant-a/docs/doc-1/v3/original"
	if k1 != want {
		t.Errorf("expected %q, got %q", want, k1)
	}
}

func TestGenerateKeyVariesByVersion(t *testing.T) {
	k1 := GenerateKey("t", "d", 1)
	k2 := GenerateKey("t", "d", 2)
	if k1 == k2 {
		t.Error("expected different keys for different versions")
	}
}

func TestErrorRetryable(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want bool
	}{
		{ErrKindTransient, true},
		{ErrKindAuth, true},
		{ErrKindNotFound, false},
	}
	for _, c := range cases {
		e := &Error{Kind: c.kind}
		if got := e.Retryable(); got != c.want {
			t.Errorf("kind %s: retryable = %v, want %v", c.kind, got, c.want)
		}
	}
}
