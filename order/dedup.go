package order

// Dedup keeps the first line of every product in first-seen order. A later
// duplicate only contributes its note when the kept line has none.
// Quantities of duplicates are not added up.
func Dedup(lines []OrderLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		i, seen := index[l.Product]
		if !seen {
			index[l.Product] = len(out)
			out = append(out, l)
			continue
		}
		if !out[i].HasNote() && l.HasNote() {
			out[i].Note = l.Note
		}
	}
	return out
}
