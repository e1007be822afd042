package ident

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Fix Bug!":        "fix-bug",
		"  leading/trail ": "leading-trail",
		"a___b--c":         "a-b-c",
		"":                 "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveChangesetIDEmpty(t *testing.T) {
	got, err := DeriveChangesetID("X", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "001-x" {
		t.Fatalf("got %q, want 001-x", got)
	}
}

func TestDeriveChangesetIDExisting(t *testing.T) {
	got, err := DeriveChangesetID("X", []string{"042-a", "002-b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "043-x" {
		t.Fatalf("got %q, want 043-x", got)
	}
}

func TestDeriveChangesetIDEmptySubject(t *testing.T) {
	if _, err := DeriveChangesetID("!!!", nil); err == nil {
		t.Fatal("expected error for subject that slugifies to empty string")
	}
}

func TestNormalizeRepoKey(t *testing.T) {
	a, err := NormalizeRepoKey("git@github.com:o/r.git")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeRepoKey("https://github.com/o/r")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a != "github.com/o/r" {
		t.Fatalf("got a=%q b=%q, want both github.com/o/r", a, b)
	}
}

func TestNormalizeRepoKeyEmpty(t *testing.T) {
	if _, err := NormalizeRepoKey(""); err == nil {
		t.Fatal("expected error for empty remote")
	}
}
