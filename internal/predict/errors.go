package predict

import (
	"errors"
	"fmt"

	"exohab/internal/common"
)

// ErrNotReady is returned by every entry point while the scaler or classifier is missing.
var ErrNotReady = errors.New(common.ErrMsgNotReady)

// FailedError reports a scaler or classifier fault on otherwise valid input.
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("Prediction failed: %v", e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// BatchTooLargeError rejects a whole batch before any item is processed.
type BatchTooLargeError struct {
	Size  int
	Limit int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("Batch size limit exceeded. Maximum %d planets per request.", e.Limit)
}
