package backend

import "testing"

func TestProviderID(t *testing.T) {
	cases := []struct {
		currency, network, want string
	}{
		{"KES", "Safaricom", "mpesa"},
		{"KES", "Airtel", "airtel-ke"},
		{"UGX", "MTN", "mtn-ug"},
		{"GHS", "AirtelTigo", "airteltigo-gh"},
		{"CDF", "Orange Money", "orange-cd"},
		{"ETB", "Cbe Birr", "cbe-et"},
		{"kes", "Safaricom", "mpesa"},
		{"KES", "Equitel", "equitel"},
		{"XXX", "SomeNet", "somenet"},
	}
	for _, c := range cases {
		if got := ProviderID(c.currency, c.network); got != c.want {
			t.Errorf("ProviderID(%q, %q) = %q, want %q", c.currency, c.network, got, c.want)
		}
	}
}
