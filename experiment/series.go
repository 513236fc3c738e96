package experiment

// Point is a residency sample taken after Units scanned units
type Point struct {
	Units    int
	Resident int
}

// TimeSeries is the ordered list of samples of a trial
type TimeSeries []Point

// Row is one line of an index aligned comparison
type Row struct {
	Index     int
	Offset    int
	ResidentA int
	ResidentB int
}

// Comparison aligns two series index by index
type Comparison struct {
	Rows []Row
	// Mismatch is set when the series have different lengths and were truncated
	Mismatch bool
	LengthA  int
	LengthB  int
}

// Compare aligns a and b by index. Rows past the shorter series are dropped
// and the mismatch is flagged.
func Compare(a, b TimeSeries, interval int) Comparison {
	n := min(len(a), len(b))
	c := Comparison{
		Rows:     make([]Row, n),
		Mismatch: len(a) != len(b),
		LengthA:  len(a),
		LengthB:  len(b),
	}
	for i := range n {
		c.Rows[i] = Row{
			Index:     i,
			Offset:    i * interval,
			ResidentA: a[i].Resident,
			ResidentB: b[i].Resident,
		}
	}
	return c
}
