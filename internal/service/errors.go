package service

import "errors"

var (
	ErrNotFound        = errors.New("error not found")
	ErrAssetNotActive  = errors.New("error asset is not active")
	ErrApplyInProgress = errors.New("error rebalance apply already in progress")
	ErrAlreadyUndone   = errors.New("error history record already undone")
	ErrSharingDisabled = errors.New("error report sharing is disabled")
)
