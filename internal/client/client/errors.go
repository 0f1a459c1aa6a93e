package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinlink/internal/common"
)

var (
	// ErrUnavailable matches common.ErrOffline.
	ErrUnavailable           = fmt.Errorf("server unavailable: %w", common.ErrOffline)
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
