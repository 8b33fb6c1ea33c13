package retailer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thoughttotable/backend/internal/domain"
)

// priceRegex pulls the first dollars[.cents] figure out of a price blob.
// Storefront price nodes read like "$3.48", "current price $12.97", or
// "$4.98 23.4 ¢/oz".
var priceRegex = regexp.MustCompile(`(\d+)(?:\.(\d{1,2}))?`)

// ParsePrice converts a scraped price string to exact cents. Returns nil
// when no price can be recognized; a missing price is not an error.
func ParsePrice(raw string) *domain.Money {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	match := priceRegex.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	dollars, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}

	var cents int64
	if match[2] != "" {
		fraction := match[2]
		if len(fraction) == 1 {
			fraction += "0"
		}
		cents, err = strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return nil
		}
	}

	return &domain.Money{Cents: dollars*100 + cents, Currency: "USD"}
}
