package walks

import "testing"

func TestVerify(t *testing.T) {
	r := Reservation{ReserverName: "Kim Jiwoo", ReserverPhone: "010-1234-5678"}

	cases := []struct {
		name  string
		rname string
		phone string
		want  bool
	}{
		{"exact match", "Kim Jiwoo", "010-1234-5678", true},
		{"wrong phone", "Kim Jiwoo", "010-0000-0000", false},
		{"wrong name", "Kim Jisoo", "010-1234-5678", false},
		{"case sensitive", "kim jiwoo", "010-1234-5678", false},
		{"no trimming", " Kim Jiwoo", "010-1234-5678", false},
		{"empty identity", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verify(r, tc.rname, tc.phone); got != tc.want {
				t.Fatalf("Verify(%q, %q) = %v, want %v", tc.rname, tc.phone, got, tc.want)
			}
		})
	}
}
