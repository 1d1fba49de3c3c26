package listener

import "testing"

func TestContainsUrgentKeyword(t *testing.T) {
	if !ContainsUrgentKeyword("the build is starting to FAIL again") {
		t.Error("expected case-insensitive match on 'fail'")
	}
	if !ContainsUrgentKeyword("don't forget the deadline is tomorrow") {
		t.Error("expected match on 'deadline'")
	}
	if ContainsUrgentKeyword("everything looks calm and fine") {
		t.Error("expected no match")
	}
}
