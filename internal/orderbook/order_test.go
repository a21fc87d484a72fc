package orderbook

import "testing"

func TestSideConstants(t *testing.T) {
	if SideBuy != 'B' {
		t.Fatalf("SideBuy = %c, want B", SideBuy)
	}
	if SideSell != 'S' {
		t.Fatalf("SideSell = %c, want S", SideSell)
	}
}

func TestParseSideAcceptsFIXCodes(t *testing.T) {
	cases := []struct {
		in   string
		want Side
		ok   bool
	}{
		{"B", SideBuy, true},
		{"1", SideBuy, true},
		{"S", SideSell, true},
		{"2", SideSell, true},
		{"x", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseSide(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseSide(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSideOpposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell {
		t.Fatal("SideBuy.Opposite() should be SideSell")
	}
	if SideSell.Opposite() != SideBuy {
		t.Fatal("SideSell.Opposite() should be SideBuy")
	}
}

func TestSideString(t *testing.T) {
	if SideBuy.String() != "1" {
		t.Fatalf("SideBuy.String() = %q, want \"1\"", SideBuy.String())
	}
	if SideSell.String() != "2" {
		t.Fatalf("SideSell.String() = %q, want \"2\"", SideSell.String())
	}
}
