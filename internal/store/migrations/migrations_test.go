package migrations_test

import (
	"context"
	"database/sql"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store/migrations"
)

var _ = Describe("Run", func() {
	var (
		ctx context.Context
		db  *sql.DB
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("should create the runs table", func() {
		Expect(migrations.Run(ctx, db)).To(Succeed())

		var count int
		Expect(db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("should record applied versions", func() {
		Expect(migrations.Run(ctx, db)).To(Succeed())

		var version int
		err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(1))
	})

	// Running the migrations on an already-migrated database must change
	// nothing: every process start runs them unconditionally.
	It("should be idempotent", func() {
		Expect(migrations.Run(ctx, db)).To(Succeed())

		_, err := db.ExecContext(ctx, `
			INSERT INTO runs (id, scenario, verdict, exit_code, timed_out, elapsed_ms)
			VALUES ('a1', 'offline-routers', 'hang-bug', -1, true, 120000)`)
		Expect(err).NotTo(HaveOccurred())

		Expect(migrations.Run(ctx, db)).To(Succeed())

		var count int
		Expect(db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))

		var applied int
		Expect(db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied)).To(Succeed())
		Expect(applied).To(Equal(1))
	})
})
