package canonicalize

import "testing"

func TestHashDeterministic(t *testing.T) {
	v := map[string]any{"b": 1, "a": []any{"x", "y"}, "c": map[string]any{"z": 2, "y": 1}}

	h1, err := Hash(v)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(map[string]any{"c": map[string]any{"y": 1, "z": 2}, "a": []any{"x", "y"}, "b": 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("key order must not affect hash: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(h1))
	}
}

func TestHashUnicodeNormalization(t *testing.T) {
	// "é" as a precomposed codepoint vs "e" + combining acute accent.
	precomposed := "café"
	decomposed := "café"
	if precomposed == decomposed {
		t.Fatal("test fixture strings must differ byte-for-byte")
	}

	h1, err := Hash(map[string]any{"name": precomposed})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(map[string]any{"name": decomposed})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("NFC-equivalent strings must hash identically: %s != %s", h1, h2)
	}
}

func TestMustHashPanicsOnUnhashable(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for unhashable value")
		}
		if _, ok := r.(*UnhashableValueError); !ok {
			t.Fatalf("expected *UnhashableValueError, got %T", r)
		}
	}()
	MustHash(func() {})
}

type taggedStruct struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

func TestHashRespectsJSONTags(t *testing.T) {
	h1, err := Hash(taggedStruct{Name: "alpha", ID: 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(map[string]any{"name": "alpha", "id": 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("struct and equivalent map must hash identically: %s != %s", h1, h2)
	}
}
