package session

import "errors"

// These errors are the closed set of reasons Apply reports and the
// authority echoes back in a rejected(seq, reason) message. Each one's
// Error() string is the stable wire string; never wrap these with extra
// context.
var (
	ErrDuplicateTrackID  = errors.New("duplicate_track_id")
	ErrTrackLimitExceeded = errors.New("track_limit_exceeded")
	ErrUnknownTrack       = errors.New("unknown_track")
	ErrInvalidLoopRegion  = errors.New("invalid_loop_region")
	ErrUnknownMutation    = errors.New("unknown_mutation")
)
