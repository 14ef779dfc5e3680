package predict

import "golang.org/x/sync/errgroup"

// BatchItem is a successful prediction tagged with its position in the batch.
type BatchItem struct {
	Index int `json:"index"`
	Result
}

// BatchError is a failed item tagged with its position and original input.
type BatchError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
	Input any    `json:"input"`
}

// BatchOutcome collects per-item results in index order.
// Successful + Failed always equals Total.
type BatchOutcome struct {
	Results    []BatchItem  `json:"batch_results"`
	Errors     []BatchError `json:"errors"`
	Total      int          `json:"total_processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
}

type itemOutcome struct {
	result Result
	err    error
}

// PredictBatch validates and predicts every item. Only readiness and the size cap
// reject the whole batch; any other failure is recorded against its item.
func (s *Service) PredictBatch(raws []any) (BatchOutcome, error) {
	if err := s.CheckReady(); err != nil {
		return BatchOutcome{}, err
	}
	if len(raws) > s.batchLimit {
		if s.metrics != nil {
			s.metrics.BatchRejectedInc()
		}
		return BatchOutcome{}, &BatchTooLargeError{Size: len(raws), Limit: s.batchLimit}
	}
	if s.metrics != nil {
		s.metrics.BatchRequestInc()
		s.metrics.BatchSizeObserve(float64(len(raws)))
	}

	items := make([]itemOutcome, len(raws))
	if s.workers <= 1 || len(raws) <= 1 {
		for i, raw := range raws {
			items[i] = s.predictItem(raw)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for i, raw := range raws {
			g.Go(func() error {
				items[i] = s.predictItem(raw)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := BatchOutcome{
		Results: make([]BatchItem, 0, len(raws)),
		Errors:  make([]BatchError, 0),
		Total:   len(raws),
	}
	for i, item := range items {
		if item.err != nil {
			out.Errors = append(out.Errors, BatchError{Index: i, Error: item.err.Error(), Input: raws[i]})
			continue
		}
		out.Results = append(out.Results, BatchItem{Index: i, Result: item.result})
	}
	out.Successful = len(out.Results)
	out.Failed = len(out.Errors)
	return out, nil
}

func (s *Service) predictItem(raw any) itemOutcome {
	rec, err := s.validate(raw)
	if err != nil {
		return itemOutcome{err: err}
	}
	res, err := s.predict(rec)
	return itemOutcome{result: res, err: err}
}
