package storefront

import (
	"fmt"
	"strings"
)

var spanishMonths = map[string]string{
	"ENE": "01", "FEB": "02", "MAR": "03", "ABR": "04", "MAY": "05", "JUN": "06",
	"JUL": "07", "AGO": "08", "SEP": "09", "OCT": "10", "NOV": "11", "DIC": "12",
}

// NormalizeDate turns a Spanish storefront date such as "12 ABR. 2021" into
// "2021-04-12". Unknown months map to January. Anything that is not
// day, month and year returns "" and false.
func NormalizeDate(text string) (string, bool) {
	parts := strings.Fields(strings.ReplaceAll(strings.ToUpper(text), ".", ""))
	if len(parts) != 3 {
		return "", false
	}

	day := parts[0]
	if len(day) == 1 {
		day = "0" + day
	}

	month := []rune(parts[1])
	if len(month) > 3 {
		month = month[:3]
	}
	mm, ok := spanishMonths[string(month)]
	if !ok {
		mm = "01"
	}

	return fmt.Sprintf("%s-%s-%s", parts[2], mm, day), true
}
