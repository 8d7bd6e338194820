package referrals

import "testing"

func TestBonusFloorDivision(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		percent int64
		want    int64
	}{
		{"one month at 10 percent", 29900, 10, 2990},
		{"three months at 10 percent", 79900, 10, 7990},
		{"remainder dropped", 999, 10, 99},
		{"sub kopeck rounds to zero", 9, 10, 0},
		{"zero amount", 0, 10, 0},
		{"zero percent", 29900, 0, 0},
		{"negative amount", -100, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Bonus(tc.amount, tc.percent); got != tc.want {
				t.Fatalf("Bonus(%d, %d) = %d, want %d", tc.amount, tc.percent, got, tc.want)
			}
		})
	}
}
