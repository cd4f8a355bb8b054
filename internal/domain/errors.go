package domain

import "errors"

var (
	// ErrEmptyExtent is returned when a bounding box cannot be computed
	// because the target holds no features with finite coordinates.
	ErrEmptyExtent = errors.New("empty extent")

	ErrMapNotFound     = errors.New("map not found")
	ErrPayloadNotFound = errors.New("payload not found")
	ErrReleveNotFound  = errors.New("releve not found")
)
