package daemon_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/daemon"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

// shellSupervisor supervises a shell one-liner standing in for the real
// daemon binary.
func shellSupervisor(script string, readyTimeout time.Duration) *daemon.Supervisor {
	return daemon.NewSupervisor(daemon.Config{
		Bin:          "/bin/sh",
		Args:         []string{"-c", script},
		ReadyTimeout: readyTimeout,
	})
}

var _ = Describe("Supervisor", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("WaitReady", func() {
		// Given a process that prints the readiness marker and keeps running
		// Then WaitReady returns nil while the process is still alive
		It("should detect the readiness marker", func() {
			sup := shellSupervisor(`echo "Daemon is ready"; exec sleep 30`, 10*time.Second)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer sup.Shutdown(ctx, h)

			Expect(sup.WaitReady(ctx, h)).To(Succeed())
			Expect(h.Exited()).To(BeFalse())
		})

		// Given a process that exits before printing the marker
		// Then WaitReady surfaces a crash error carrying the exit code and
		// whatever the process wrote to stderr
		It("should fail with a crash error when the process exits first", func() {
			sup := shellSupervisor(`echo "boom" >&2; exit 3`, 10*time.Second)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())

			err = sup.WaitReady(ctx, h)
			Expect(srvErrors.IsDaemonCrashError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("exit code 3"))
			Expect(err.Error()).To(ContainSubstring("boom"))
		})

		It("should time out when the marker never appears", func() {
			sup := shellSupervisor(`exec sleep 30`, 500*time.Millisecond)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer sup.Shutdown(ctx, h)

			err = sup.WaitReady(ctx, h)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not ready"))
		})

		It("should honor context cancellation", func() {
			sup := shellSupervisor(`exec sleep 30`, 0)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer sup.Shutdown(ctx, h)

			cancelCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
			defer cancel()
			Expect(sup.WaitReady(cancelCtx, h)).To(MatchError(context.DeadlineExceeded))
		})
	})

	Describe("Start", func() {
		It("should fail when the binary does not exist", func() {
			sup := daemon.NewSupervisor(daemon.Config{Bin: "/nonexistent/daemon-bin"})
			_, err := sup.Start(ctx)
			Expect(err).To(HaveOccurred())
		})

		It("should record the exit code on the handle", func() {
			sup := shellSupervisor(`exit 7`, 0)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())

			Eventually(h.Exited, "5s", "50ms").Should(BeTrue())
			code, ok := h.ExitCode()
			Expect(ok).To(BeTrue())
			Expect(code).To(Equal(7))
		})
	})

	Describe("Shutdown", func() {
		// Given a process that exits promptly on SIGTERM
		// Then shutdown finishes within the graceful window
		It("should stop a cooperative process gracefully", func() {
			sup := shellSupervisor(`echo "Daemon is ready"; exec sleep 30`, 10*time.Second)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sup.WaitReady(ctx, h)).To(Succeed())

			Expect(sup.Shutdown(ctx, h)).To(Succeed())
			Expect(h.Exited()).To(BeTrue())
		})

		// Shutdown must be safe to call any number of times: the deferred
		// cleanup path and the explicit stop path can both run.
		It("should be idempotent", func() {
			sup := shellSupervisor(`exec sleep 30`, 0)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sup.Shutdown(ctx, h)).To(Succeed())
			Expect(sup.Shutdown(ctx, h)).To(Succeed())
		})

		It("should be a no-op on an already-exited process", func() {
			sup := shellSupervisor(`exit 0`, 0)

			h, err := sup.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Eventually(h.Exited, "5s", "50ms").Should(BeTrue())

			Expect(sup.Shutdown(ctx, h)).To(Succeed())
		})

		It("should tolerate a nil handle", func() {
			sup := shellSupervisor(`exit 0`, 0)
			Expect(sup.Shutdown(ctx, nil)).To(Succeed())
		})
	})
})
