package dom

import "errors"

// Error kinds shared by the primitives. Ordinary failures surface through
// structured results; these sentinels classify the failure for retry policy.
var (
	ErrLocatorNotFound    = errors.New("locator not found")
	ErrTypeMismatch       = errors.New("answer cannot be normalized for field type")
	ErrThresholdMiss      = errors.New("no option met the confidence threshold")
	ErrFrameworkOverwrite = errors.New("post-set verification failed")
	ErrUploadIncomplete   = errors.New("upload not accepted before timeout")
	ErrNoProgress         = errors.New("repeated clicks made no progress")
)
