package ports_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/ports"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

// grabPort binds a listener on a kernel-chosen port and returns it still
// held, so the port is observably occupied for the duration of the test.
func grabPort() (net.Listener, int) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	return l, l.Addr().(*net.TCPAddr).Port
}

// freePort asks the kernel for a port and releases it immediately.
func freePort() int {
	l, port := grabPort()
	l.Close()
	return port
}

var _ = Describe("Check", func() {
	// Given specs whose observed state matches expectations
	// When we check them
	// Then the check succeeds
	It("should succeed when every port is in the expected state", func() {
		held, occupiedPort := grabPort()
		defer held.Close()

		specs := []models.PortSpec{
			{Host: "127.0.0.1", Port: freePort(), Role: "router-a", ExpectedFree: true},
			{Host: "127.0.0.1", Port: occupiedPort, Role: "collaborator", ExpectedFree: false},
		}
		Expect(ports.Check(specs)).To(Succeed())
	})

	// Given a port expected free but actually occupied
	// Then the check fails with a PortConflictError naming it
	It("should fail for an occupied port expected free", func() {
		held, port := grabPort()
		defer held.Close()

		err := ports.Check([]models.PortSpec{
			{Host: "127.0.0.1", Port: port, Role: "router-a", ExpectedFree: true},
		})
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsPortConflictError(err)).To(BeTrue())
	})

	// Given a port expected occupied but actually free
	// Then the check fails as well
	It("should fail for a free port expected occupied", func() {
		err := ports.Check([]models.PortSpec{
			{Host: "127.0.0.1", Port: freePort(), Role: "collaborator", ExpectedFree: false},
		})
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsPortConflictError(err)).To(BeTrue())
	})

	// Given several mismatched ports at once
	// When we check them
	// Then the error enumerates every mismatch, not just the first
	It("should report every mismatched port", func() {
		heldA, portA := grabPort()
		defer heldA.Close()
		heldB, portB := grabPort()
		defer heldB.Close()

		err := ports.Check([]models.PortSpec{
			{Host: "127.0.0.1", Port: portA, Role: "router-a", ExpectedFree: true},
			{Host: "127.0.0.1", Port: freePort(), Role: "swarm", ExpectedFree: true},
			{Host: "127.0.0.1", Port: portB, Role: "router-b", ExpectedFree: true},
		})
		Expect(err).To(HaveOccurred())

		var conflictErr *srvErrors.PortConflictError
		Expect(err).To(BeAssignableToTypeOf(conflictErr))
		conflictErr = err.(*srvErrors.PortConflictError)
		Expect(conflictErr.Conflicts).To(HaveLen(2))

		roles := []string{conflictErr.Conflicts[0].Role, conflictErr.Conflicts[1].Role}
		Expect(roles).To(ConsistOf("router-a", "router-b"))
	})

	It("should succeed on an empty spec list", func() {
		Expect(ports.Check(nil)).To(Succeed())
	})
})
