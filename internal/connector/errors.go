package connector

import "errors"

var (
	ErrDuplicateFeature = errors.New("feature already exists")
	ErrFeatureNotFound  = errors.New("feature not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrDuplicateTask    = errors.New("task already exists")
	ErrNoRequirements   = errors.New("feature has no requirements")
	ErrWrongNodeType    = errors.New("node exists with a different type")
)
