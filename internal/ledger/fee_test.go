package ledger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahmoudomarus/krib-server/internal/ledger"
)

func TestCalculator_Fees(t *testing.T) {
	type testCase struct {
		name  string
		calc  ledger.Calculator
		gross int64
		want  ledger.Fees
	}

	tests := []testCase{
		{
			name:  "PlatformOnly",
			calc:  ledger.Calculator{PlatformFeeBPS: 1500},
			gross: 100000,
			want:  ledger.Fees{Platform: 15000, Processing: 0, Net: 85000},
		},
		{
			name: "CombinedModel",
			calc: ledger.Calculator{
				PlatformFeeBPS:          1500,
				ProcessingFeeBPS:        290,
				ProcessingFeeFixedCents: 30,
			},
			gross: 100000,
			want:  ledger.Fees{Platform: 15000, Processing: 2930, Net: 82070},
		},
		{
			name: "RoundsHalfUp",
			calc: ledger.Calculator{
				PlatformFeeBPS:   1500,
				ProcessingFeeBPS: 290,
			},
			// 15% of 333 is 49.95, rounds to 50; 2.9% is 9.657, rounds to 10.
			gross: 333,
			want:  ledger.Fees{Platform: 50, Processing: 10, Net: 273},
		},
		{
			name: "ZeroGross",
			calc: ledger.Calculator{
				PlatformFeeBPS:          1500,
				ProcessingFeeBPS:        290,
				ProcessingFeeFixedCents: 30,
			},
			gross: 0,
			want:  ledger.Fees{},
		},
		{
			name: "NegativeGross",
			calc: ledger.Calculator{
				PlatformFeeBPS:          1500,
				ProcessingFeeFixedCents: 30,
			},
			gross: -500,
			want:  ledger.Fees{},
		},
		{
			name:  "ZeroRates",
			calc:  ledger.Calculator{},
			gross: 100000,
			want:  ledger.Fees{Platform: 0, Processing: 0, Net: 100000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.calc.Fees(tt.gross)

			assert.Equal(t, tt.want, got)

			if tt.gross > 0 {
				assert.Equal(t, tt.gross, got.Platform+got.Processing+got.Net)
			}
		})
	}
}

func TestEntry_Validate(t *testing.T) {
	entry := &ledger.Entry{
		ID:            uuid.New(),
		GrossAmount:   100000,
		PlatformFee:   15000,
		ProcessingFee: 2930,
		NetAmount:     82070,
	}
	require.NoError(t, entry.Validate())

	entry.NetAmount = 85000
	err := entry.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net 85000")
}
