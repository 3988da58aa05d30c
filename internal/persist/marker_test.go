package persist

import "testing"

func TestExistsFalseBeforeMark(t *testing.T) {
	m, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	if m.Exists("g", "A") {
		t.Fatalf("expected no marker before MarkExists")
	}
}

func TestMarkExistsThenExistsTrue(t *testing.T) {
	m, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	if err := m.MarkExists("g", "A"); err != nil {
		t.Fatalf("mark exists: %v", err)
	}
	if !m.Exists("g", "A") {
		t.Fatalf("expected marker present after MarkExists")
	}
	if m.Exists("g", "B") {
		t.Fatalf("expected no marker for a different node")
	}
	if m.Exists("h", "A") {
		t.Fatalf("expected no marker for a different group")
	}
}
