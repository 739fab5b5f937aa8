package molsearch

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/chemrl/molsearch/chem"
)

// RunEpisodes generates episodes concurrently. Each worker owns its own
// controller and search tree; only the problem and the evaluator are shared,
// and both are expected to tolerate concurrent calls. A fixed engine seed is
// offset per worker so workers do not mirror each other's sampling.
//
// Failed episodes are returned in place (possibly partial) with their errors
// aggregated; the remaining workers keep going. Cancellation stops the
// scheduling of new episodes: never-attempted ones are dropped from the
// result and the context's error joins the aggregate.
func RunEpisodes(ctx context.Context, problem chem.Problem, eval chem.Evaluator, root chem.State, conf Config, episodes, workers int) ([]Episode, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > episodes {
		workers = episodes
	}

	retVal := make([]Episode, episodes)
	tasks := make(chan int)

	var mu sync.Mutex
	var errs *multierror.Error
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		workerConf := conf
		workerConf.Name = fmt.Sprintf("%s/w%d", conf.Name, w)
		if workerConf.MCTS.Seed != 0 {
			workerConf.MCTS.Seed += int64(w)
		}

		r, err := NewRollout(problem, eval, workerConf)
		if err != nil {
			// configuration errors are the same for every worker
			return nil, err
		}

		wg.Add(1)
		go func(r *Rollout) {
			defer wg.Done()
			for i := range tasks {
				ep, err := r.Run(ctx, root)
				ep.Name = fmt.Sprintf("%s/ep%d", conf.Name, i)
				mu.Lock()
				retVal[i] = ep
				if err != nil {
					errs = multierror.Append(errs, err)
				}
				mu.Unlock()
				if ctx.Err() != nil {
					return
				}
			}
		}(r)
	}

	scheduled := 0
	for i := 0; i < episodes && ctx.Err() == nil; i++ {
		select {
		case tasks <- i:
			scheduled++
		case <-ctx.Done():
		}
	}
	close(tasks)
	wg.Wait()

	if scheduled < episodes {
		// never-attempted episodes are trimmed rather than returned as
		// zero values a caller could mistake for real results
		retVal = retVal[:scheduled]
		errs = multierror.Append(errs, ctx.Err())
	}
	return retVal, errs.ErrorOrNil()
}
