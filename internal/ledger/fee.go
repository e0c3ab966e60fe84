package ledger

// Calculator derives platform and processing fees from a gross amount.
// Percentages are expressed in basis points so the arithmetic stays in
// integers; rounding is half-up to the cent.
type Calculator struct {
	PlatformFeeBPS          int64
	ProcessingFeeBPS        int64
	ProcessingFeeFixedCents int64
}

// Fees is the breakdown of a gross amount, in cents.
type Fees struct {
	Platform   int64
	Processing int64
	Net        int64
}

// Fees splits grossCents into platform fee, processing fee and host net.
// A zero gross amount yields zero fees, including the fixed processing
// component.
func (c Calculator) Fees(grossCents int64) Fees {
	if grossCents <= 0 {
		return Fees{}
	}

	platform := roundBPS(grossCents, c.PlatformFeeBPS)
	processing := roundBPS(grossCents, c.ProcessingFeeBPS) + c.ProcessingFeeFixedCents

	return Fees{
		Platform:   platform,
		Processing: processing,
		Net:        grossCents - platform - processing,
	}
}

func roundBPS(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
