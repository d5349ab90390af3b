package render

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/datallboy/jarview/internal/domain"
)

// ParseListing reads `jar -t -v` output. Each non-blank line is
// whitespace-separated: size first, member name last, date in between.
func ParseListing(out []byte) []domain.Entry {
	var entries []domain.Entry

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		e := domain.Entry{Name: fields[len(fields)-1]}
		if len(fields) > 1 {
			e.Size = fields[0]
			e.Date = strings.Join(fields[1:len(fields)-1], " ")
		}
		entries = append(entries, e)
	}

	return entries
}
