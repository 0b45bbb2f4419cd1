package domain

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidCategory = errors.New("invalid biomarker category")
	ErrNoBiomarkers    = errors.New("patient has no biomarkers")
	ErrEmptyTopic      = errors.New("topic id must not be empty")
)
