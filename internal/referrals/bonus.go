package referrals

// Bonus computes the referral credit for a payment in kopecks. Integer floor
// division, so sub-kopeck remainders are dropped.
func Bonus(amountKopecks, percent int64) int64 {
	if amountKopecks <= 0 || percent <= 0 {
		return 0
	}
	return amountKopecks * percent / 100
}
