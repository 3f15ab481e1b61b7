package portgraph

import (
	"slices"
	"testing"
)

func TestCompoundPathRelations(t *testing.T) {
	tests := []struct {
		name       string
		p, other   CompoundPath
		wantPrefix bool
	}{
		{name: "RootPrefixesAll", p: nil, other: CompoundPath{"a", "b"}, wantPrefix: true},
		{name: "SelfPrefix", p: CompoundPath{"a"}, other: CompoundPath{"a"}, wantPrefix: true},
		{name: "ProperPrefix", p: CompoundPath{"a"}, other: CompoundPath{"a", "b"}, wantPrefix: true},
		{name: "Diverging", p: CompoundPath{"a", "x"}, other: CompoundPath{"a", "b"}, wantPrefix: false},
		{name: "Longer", p: CompoundPath{"a", "b", "c"}, other: CompoundPath{"a", "b"}, wantPrefix: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsPrefixOf(tt.other); got != tt.wantPrefix {
				t.Errorf("IsPrefixOf(%s, %s) = %v, want %v", tt.p, tt.other, got, tt.wantPrefix)
			}
		})
	}
}

func TestCompoundPathRelativeTo(t *testing.T) {
	p := CompoundPath{"a", "b", "c"}

	rel, err := p.RelativeTo(CompoundPath{"a"})
	if err != nil {
		t.Fatalf("RelativeTo: %v", err)
	}
	if !slices.Equal(rel, CompoundPath{"b", "c"}) {
		t.Errorf("RelativeTo = %v, want [b c]", rel)
	}

	if _, err := p.RelativeTo(CompoundPath{"x"}); err == nil {
		t.Error("RelativeTo with non-prefix base should fail")
	}
}

func TestCommonPrefix(t *testing.T) {
	got := CommonPrefix(CompoundPath{"a", "b", "c"}, CompoundPath{"a", "b", "x"})
	if !slices.Equal(got, CompoundPath{"a", "b"}) {
		t.Errorf("CommonPrefix = %v, want [a b]", got)
	}
	if got := CommonPrefix(CompoundPath{"a"}, CompoundPath{"x"}); len(got) != 0 {
		t.Errorf("CommonPrefix of disjoint paths = %v, want empty", got)
	}
}

func TestCompoundPathString(t *testing.T) {
	if got := (CompoundPath{}).String(); got != "/" {
		t.Errorf("root String() = %q, want /", got)
	}
	if got := (CompoundPath{"a", "b"}).String(); got != "/a/b" {
		t.Errorf("String() = %q, want /a/b", got)
	}
}

func TestCompoundPathParentAndChild(t *testing.T) {
	p := CompoundPath{"a", "b"}
	if !p.Parent().Equal(CompoundPath{"a"}) {
		t.Errorf("Parent = %v, want [a]", p.Parent())
	}
	if !(CompoundPath{}).Parent().IsRoot() {
		t.Error("parent of root should stay root")
	}
	c := p.Child("c")
	if !c.Equal(CompoundPath{"a", "b", "c"}) {
		t.Errorf("Child = %v, want [a b c]", c)
	}
	// Child must not alias the original backing array.
	if p.Leaf() != "b" {
		t.Errorf("Leaf after Child = %q, want b", p.Leaf())
	}
}
