package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bobmcallan/fihub/internal/common"
)

var quarterPattern = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// quarter is a fiscal quarter such as 2024Q1
type quarter struct {
	year int
	q    int
}

func parseQuarter(s string) (quarter, error) {
	m := quarterPattern.FindStringSubmatch(s)
	if m == nil {
		return quarter{}, fmt.Errorf("%w: quarter must be YYYYQn, got %q", common.ErrInvalidParameter, s)
	}
	year, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return quarter{year: year, q: q}, nil
}

func quarterOf(t time.Time) quarter {
	return quarter{year: t.Year(), q: (int(t.Month())-1)/3 + 1}
}

func (q quarter) previous() quarter {
	if q.q > 1 {
		return quarter{year: q.year, q: q.q - 1}
	}
	return quarter{year: q.year - 1, q: 4}
}

func (q quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.year, q.q)
}
