package track

import "strings"

// Carrier identifies which adapter owns a tracking number.
type Carrier string

const (
	CarrierUniUni  Carrier = "UniUni"
	CarrierFedEx   Carrier = "FedEx"
	CarrierUPS     Carrier = "UPS"
	CarrierUnknown Carrier = "Unknown"
)

// Classify maps a tracking number to its carrier. It is pure and total:
// any string, including an empty or malformed one, classifies. Rules are
// evaluated in precedence order, first match wins:
//
//  1. case-insensitive prefix "1Z"           -> UPS
//  2. all digits, length in {12,15,20,22}    -> FedEx
//  3. everything else (N25/JY/UN/BA schemes) -> UniUni
func Classify(number string) Carrier {
	n := strings.ToUpper(strings.TrimSpace(number))
	if strings.HasPrefix(n, "1Z") {
		return CarrierUPS
	}
	if allDigits(n) {
		switch len(n) {
		case 12, 15, 20, 22:
			return CarrierFedEx
		}
	}
	return CarrierUniUni
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DeepLink returns the carrier's public tracking page for a number.
func (c Carrier) DeepLink(number string) string {
	switch c {
	case CarrierFedEx:
		return "https://www.fedex.com/fedextrack/?trknbr=" + number
	case CarrierUPS:
		return "https://www.ups.com/track?tracknum=" + number
	case CarrierUniUni:
		return "https://www.uniuni.com/tracking/?no=" + number
	default:
		return ""
	}
}
