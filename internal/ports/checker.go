// Package ports verifies that the TCP ports a scenario depends on are in
// the expected free/occupied state before anything is started.
package ports

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

// Check performs a transient bind-then-release on every spec and returns
// a PortConflictError listing every port whose observed state disagrees
// with ExpectedFree. This is a point-in-time check: a port reported free
// here can still be claimed by someone else before the run binds it.
func Check(specs []models.PortSpec) error {
	var conflicts []srvErrors.PortConflict

	for _, spec := range specs {
		free := bindProbe(spec.Host, spec.Port)
		if free == spec.ExpectedFree {
			continue
		}
		zap.S().Warnw("port state mismatch",
			"host", spec.Host,
			"port", spec.Port,
			"role", spec.Role,
			"expected_free", spec.ExpectedFree,
			"observed_free", free)
		conflicts = append(conflicts, srvErrors.PortConflict{
			Host:         spec.Host,
			Port:         spec.Port,
			Role:         spec.Role,
			ExpectedFree: spec.ExpectedFree,
		})
	}

	if len(conflicts) > 0 {
		return srvErrors.NewPortConflictError(conflicts)
	}
	return nil
}

// bindProbe reports whether (host, port) could be bound. The listener is
// released immediately; bind success implies "free".
func bindProbe(host string, port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
