package service

// Seat labels follow a fixed enumeration scheme: rows of ten seats
// labelled A1..A10, B1..B10 and so on, continuing with AA, AB, ... when
// a capacity needs more than 26 rows. The scheme is deterministic so
// availability for a date is always capacity minus booked labels, with
// no state of its own.

const seatsPerRow = 10

// SeatLabels enumerates the labels for a given capacity in order.
func SeatLabels(total int) []string {
	labels := make([]string, 0, total)
	for i := 0; i < total; i++ {
		labels = append(labels, rowName(i/seatsPerRow)+digits(i%seatsPerRow+1))
	}
	return labels
}

// rowName converts a zero-based row index to a spreadsheet-style name:
// 0 -> A, 25 -> Z, 26 -> AA.
func rowName(idx int) string {
	name := ""
	idx++
	for idx > 0 {
		idx--
		name = string(rune('A'+idx%26)) + name
		idx /= 26
	}
	return name
}

func digits(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return "10"
}

// FreeSeats returns all labels in the capacity that are not booked.
func FreeSeats(total int, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, l := range booked {
		taken[l] = struct{}{}
	}
	free := make([]string, 0, total)
	for _, l := range SeatLabels(total) {
		if _, ok := taken[l]; !ok {
			free = append(free, l)
		}
	}
	return free
}
