package biz

import "errors"

var (
	// ErrDuplicateImage indicates the file's content hash is already in the
	// index. This is an expected outcome, not a failure.
	ErrDuplicateImage = errors.New("image already indexed")

	// ErrPoolExhausted indicates no unposted images remain.
	ErrPoolExhausted = errors.New("no unposted images left in pool")

	// ErrAlreadyPosted indicates a second attempt to mark an image posted.
	ErrAlreadyPosted = errors.New("image already marked as posted")
)
