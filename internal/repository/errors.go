package repository

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUserNotFound     = errors.New("user not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrGameNotFound     = errors.New("game not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrReplyNotFound    = errors.New("reply not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrAlreadyReported  = errors.New("already reported")
	ErrReportConfigNone = errors.New("no report config")
)
