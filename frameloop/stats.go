package frameloop

import (
	"fmt"
	"time"
)

type Stats struct {
	Presented  uint64
	Dropped    uint64
	Suboptimal uint64

	LastFrame  time.Duration
	TotalFrame time.Duration
}

// MeanFrame is the average duration of presented iterations.
func (s Stats) MeanFrame() time.Duration {
	if s.Presented == 0 {
		return 0
	}
	return s.TotalFrame / time.Duration(s.Presented)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d presented, %d dropped, %d suboptimal, mean %s, last %s",
		s.Presented, s.Dropped, s.Suboptimal, s.MeanFrame(), s.LastFrame)
}

func (s *Stats) presented(d time.Duration) {
	s.Presented++
	s.LastFrame = d
	s.TotalFrame += d
}
