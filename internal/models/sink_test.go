package models_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

var _ = Describe("OutputSink", func() {
	var sink *models.OutputSink

	BeforeEach(func() {
		sink = models.NewOutputSink()
	})

	It("should accumulate writes in order", func() {
		fmt.Fprint(sink, "Initializing daemon...\n")
		fmt.Fprint(sink, "Daemon is ready\n")

		Expect(sink.Len()).To(Equal(len("Initializing daemon...\nDaemon is ready\n")))
		Expect(sink.Finalize()).To(Equal("Initializing daemon...\nDaemon is ready\n"))
	})

	Describe("Finalize", func() {
		// Given a finalized sink
		// Then the snapshot is frozen: later writes are accepted but dropped,
		// so a draining pipe never corrupts the text consumers already saw
		It("should drop writes after finalization", func() {
			fmt.Fprint(sink, "before")
			Expect(sink.Finalize()).To(Equal("before"))

			n, err := fmt.Fprint(sink, "after")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(len("after")))

			Expect(sink.Finalize()).To(Equal("before"))
			Expect(sink.Len()).To(Equal(len("before")))
		})

		It("should let the first call win under concurrency", func() {
			fmt.Fprint(sink, "snapshot")

			var wg sync.WaitGroup
			results := make([]string, 10)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = sink.Finalize()
				}(i)
			}
			wg.Wait()

			for _, r := range results {
				Expect(r).To(Equal("snapshot"))
			}
		})
	})

	Describe("WatchFor", func() {
		It("should fulfill when the marker arrives", func() {
			ready := sink.WatchFor("Daemon is ready")
			Expect(ready.C()).NotTo(Receive())

			fmt.Fprint(sink, "Daemon is ready\n")
			Expect(ready.C()).To(Receive())
		})

		It("should fulfill immediately when the marker is already present", func() {
			fmt.Fprint(sink, "Daemon is ready\n")

			Expect(sink.WatchFor("Daemon is ready").C()).To(Receive())
		})

		// A marker split across two writes must still be seen: matching runs
		// against the accumulated text, not the individual chunk.
		It("should match a marker spanning multiple writes", func() {
			watch := sink.WatchFor("Daemon is ready")

			fmt.Fprint(sink, "Daemon is re")
			Expect(watch.C()).NotTo(Receive())

			fmt.Fprint(sink, "ady\n")
			Expect(watch.C()).To(Receive())
		})

		// Given a sink finalized without the marker
		// Then the watch stays pending forever; the caller's select resolves
		// through the exit future instead
		It("should leave the watch pending after finalization without the marker", func() {
			watch := sink.WatchFor("Daemon is ready")
			fmt.Fprint(sink, "something else")
			sink.Finalize()

			Consistently(watch.C()).ShouldNot(Receive())
		})

		It("should fulfill each watch at most once", func() {
			watch := sink.WatchFor("ready")
			fmt.Fprint(sink, "ready")
			fmt.Fprint(sink, "ready again")

			Expect(watch.C()).To(Receive())
			// closed after the single send, so repeated selects never block
			Expect(watch.C()).To(BeClosed())
		})
	})
})
