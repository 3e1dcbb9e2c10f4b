package backend

import "strings"

// providerIDs maps a fiat currency and display network name to the backend
// provider id. Networks absent from the map fall back to the lowercased
// network name.
var providerIDs = map[string]map[string]string{
	"KES": {
		"Safaricom": "mpesa",
		"Airtel":    "airtel-ke",
	},
	"UGX": {
		"MTN":    "mtn-ug",
		"Airtel": "airtel-ug",
	},
	"GHS": {
		"MTN":        "mtn-gh",
		"AirtelTigo": "airteltigo-gh",
	},
	"CDF": {
		"Airtel Money": "airtel-cd",
		"Orange Money": "orange-cd",
	},
	"ETB": {
		"Telebirr": "telebirr",
		"Cbe Birr": "cbe-et",
	},
}

// ProviderID resolves a display network name within a fiat currency to the
// provider id the backend expects.
func ProviderID(currency, network string) string {
	if m, ok := providerIDs[strings.ToUpper(currency)]; ok {
		if id, ok := m[network]; ok {
			return id
		}
	}
	return strings.ToLower(network)
}
