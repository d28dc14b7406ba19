package anomaly

import (
	"context"
	"errors"
)

// Recorder persists served predictions. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, prediction Prediction) error
}

// MultiRecorder records to every backend and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, prediction Prediction) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, prediction); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
