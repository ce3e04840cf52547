package converter

import "testing"

func TestConvertProbabilityToTickets(t *testing.T) {
	cases := []struct {
		name        string
		probability float64
		want        int
	}{
		{
			name:        "Whole",
			probability: 1,
			want:        1_000_000,
		},
		{
			name:        "Zero",
			probability: 0,
			want:        0,
		},
		{
			name:        "Rounded",
			probability: 20.0 / 990.0,
			want:        20202,
		},
		{
			name:        "Floor",
			probability: 1e-6,
			want:        1,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ConvertProbabilityToTickets(tc.probability)
			if got != tc.want {
				t.Errorf("unexpected result, want: %d, got: %d", tc.want, got)
			}
		})
	}
}

func TestConvertTicketsToProbability(t *testing.T) {
	cases := []struct {
		name    string
		tickets int
		want    float64
	}{
		{
			name:    "Half",
			tickets: 500_000,
			want:    0.5,
		},
		{
			name:    "Zero",
			tickets: 0,
			want:    0,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ConvertTicketsToProbability(tc.tickets)
			if got != tc.want {
				t.Errorf("unexpected result, want: %f, got: %f", tc.want, got)
			}
		})
	}
}

func TestConvertProbabilityToPercentString(t *testing.T) {
	if got := ConvertProbabilityToPercentString(0.0202); got != "2.0200%" {
		t.Errorf("unexpected result, want: 2.0200%%, got: %s", got)
	}
}
