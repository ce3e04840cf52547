package converter

import (
	"math"
	"strconv"
)

// TicketSpace is the number of distinct tickets a round can draw.
const TicketSpace = 1_000_000

// ConvertProbabilityToTickets returns how many of the TicketSpace tickets a probability covers.
func ConvertProbabilityToTickets(probability float64) int {
	return int(math.Round(probability * TicketSpace))
}

func ConvertTicketsToProbability(tickets int) float64 {
	return float64(tickets) / TicketSpace
}

// ConvertProbabilityToPercentString formats 0.0202 as "2.0200%".
func ConvertProbabilityToPercentString(probability float64) string {
	return strconv.FormatFloat(probability*100, 'f', 4, 64) + "%"
}
