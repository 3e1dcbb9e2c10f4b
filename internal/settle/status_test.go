package settle

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"COMPLETED", StatusCompleted},
		{"completed", StatusCompleted},
		{"Success", StatusCompleted},
		{"FAILED", StatusFailed},
		{"error", StatusFailed},
		{"PENDING", StatusPending},
		{"processing", StatusPending},
		{"", StatusPending},
		{"  completed  ", StatusCompleted},
	}
	for _, c := range cases {
		if got := Normalize(c.raw); got != c.want {
			t.Errorf("Normalize(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestResultTerminal(t *testing.T) {
	if (Result{Status: StatusPending}).Terminal() {
		t.Fatal("pending 不应是终态")
	}
	if !(Result{Status: StatusCompleted}).Terminal() {
		t.Fatal("completed should be terminal")
	}
	if !(Result{Status: StatusFailed}).Terminal() {
		t.Fatal("failed should be terminal")
	}
}
