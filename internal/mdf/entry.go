package mdf

// Entry is the parsed projection of one MDF record block. MDFData keeps the
// raw block verbatim (outer whitespace trimmed); everything else is derived
// from it and is never authoritative on its own.
type Entry struct {
	Lx string
	Hm int
	Ps string
	Ge string

	// Repeated fields, in document order.
	Va []string
	Se []string
	Cf []string
	Ve []string
	Lg []string

	// RecordID is the integer from the first "\nt Record: <n>" line, or nil
	// when the block carries none. Other \nt lines are plain remarks.
	RecordID *int

	MDFData string
}
