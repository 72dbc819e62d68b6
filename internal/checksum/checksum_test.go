package checksum

import "testing"

func TestSum(t *testing.T) {
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Sum([]byte("hello")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestMatch(t *testing.T) {
	sum := Sum([]byte("x"))
	for _, tag := range []string{sum, Quote(sum), "W/" + Quote(sum), " " + sum + " ", "*"} {
		if !Match(tag, sum) {
			t.Errorf("Match(%q) = false", tag)
		}
	}
	if Match(Sum([]byte("y")), sum) {
		t.Error("different digest matched")
	}
}
