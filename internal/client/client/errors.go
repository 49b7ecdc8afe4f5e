package client

import (
	"fmt"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
)

// ErrUnavailable reports that the server could not be reached or failed.
// It matches common.ErrNetworkFailure.
var ErrUnavailable = fmt.Errorf("server unavailable: %w", common.ErrNetworkFailure)
