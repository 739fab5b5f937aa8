package molsearch

import (
	"encoding/csv"
	"io"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Statistics aggregates what a batch of episodes produced, for run-to-run
// comparison while tuning the search.
type Statistics struct {
	Rewards   []float64
	Lengths   []float64
	Truncated int
}

// TrackEpisodes summarizes a batch.
func TrackEpisodes(episodes []Episode) Statistics {
	s := Statistics{
		Rewards: make([]float64, 0, len(episodes)),
		Lengths: make([]float64, 0, len(episodes)),
	}
	for _, ep := range episodes {
		s.Rewards = append(s.Rewards, float64(ep.Reward))
		s.Lengths = append(s.Lengths, float64(ep.Len()))
		if ep.Truncated {
			s.Truncated++
		}
	}
	return s
}

// MeanReward returns the mean episode reward.
func (s Statistics) MeanReward() float64 { return stat.Mean(s.Rewards, nil) }

// StdDevReward returns the standard deviation of episode rewards.
func (s Statistics) StdDevReward() float64 { return stat.StdDev(s.Rewards, nil) }

// MeanLength returns the mean episode length in construction steps.
func (s Statistics) MeanLength() float64 { return stat.Mean(s.Lengths, nil) }

// Dump writes the per-episode rewards and lengths as CSV.
func (s Statistics) Dump(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"episode", "reward", "steps"}); err != nil {
		return err
	}
	for i := range s.Rewards {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(s.Rewards[i], 'f', -1, 32),
			strconv.Itoa(int(s.Lengths[i])),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}
