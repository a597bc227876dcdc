package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store/migrations"
)

func newRecord(scenario string, verdict models.Verdict) *models.RunRecord {
	return &models.RunRecord{
		ID:            uuid.New(),
		Scenario:      scenario,
		Verdict:       verdict,
		ExitCode:      1,
		TimedOut:      verdict == models.VerdictHangBug,
		ElapsedMs:     1500,
		StderrExcerpt: "Error: connection refused",
	}
}

var _ = Describe("RunStore", func() {
	var (
		ctx context.Context
		s   *store.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(migrations.Run(ctx, db)).To(Succeed())
		s = store.NewStore(db)
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("should save and list runs", func() {
		rec := newRecord("offline-routers", models.VerdictHangBug)
		Expect(s.Runs().Save(ctx, rec)).To(Succeed())

		records, err := s.Runs().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].ID).To(Equal(rec.ID))
		Expect(records[0].Scenario).To(Equal("offline-routers"))
		Expect(records[0].Verdict).To(Equal(models.VerdictHangBug))
		Expect(records[0].TimedOut).To(BeTrue())
		Expect(records[0].ElapsedMs).To(Equal(int64(1500)))
		Expect(records[0].StderrExcerpt).To(Equal("Error: connection refused"))
		Expect(records[0].CreatedAt).NotTo(BeZero())
	})

	It("should filter by scenario", func() {
		Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictHangBug))).To(Succeed())
		Expect(s.Runs().Save(ctx, newRecord("empty-routers", models.VerdictExpectedFailure))).To(Succeed())

		records, err := s.Runs().List(ctx, store.ByScenario("empty-routers"))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Scenario).To(Equal("empty-routers"))
	})

	It("should filter by verdict", func() {
		Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictHangBug))).To(Succeed())
		Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictExpectedFailure))).To(Succeed())
		Expect(s.Runs().Save(ctx, newRecord("empty-routers", models.VerdictHangBug))).To(Succeed())

		records, err := s.Runs().List(ctx, store.ByVerdict(models.VerdictHangBug))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		for _, rec := range records {
			Expect(rec.Verdict).To(Equal(models.VerdictHangBug))
		}
	})

	It("should combine filters and honor the limit", func() {
		for i := 0; i < 5; i++ {
			Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictHangBug))).To(Succeed())
		}

		records, err := s.Runs().List(ctx,
			store.ByScenario("offline-routers"),
			store.ByVerdict(models.VerdictHangBug),
			store.WithLimit(2),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
	})

	It("should return an empty list when nothing matches", func() {
		records, err := s.Runs().List(ctx, store.ByScenario("no-such-scenario"))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	Describe("CountByVerdict", func() {
		It("should aggregate runs per verdict", func() {
			Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictHangBug))).To(Succeed())
			Expect(s.Runs().Save(ctx, newRecord("offline-routers", models.VerdictHangBug))).To(Succeed())
			Expect(s.Runs().Save(ctx, newRecord("empty-routers", models.VerdictExpectedFailure))).To(Succeed())

			counts, err := s.Runs().CountByVerdict(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(Equal(map[models.Verdict]int{
				models.VerdictHangBug:         2,
				models.VerdictExpectedFailure: 1,
			}))
		})

		It("should return an empty map for an empty table", func() {
			counts, err := s.Runs().CountByVerdict(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(BeEmpty())
		})
	})
})
