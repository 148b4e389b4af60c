package auth

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/archival-system/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("RedisDenylist", func() {
	var (
		mr       *miniredis.Miniredis
		client   *redis.Client
		denylist *RedisDenylist
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		denylist = NewRedisDenylist(client)
		ctx = context.Background()
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("remembers a revoked id until it expires", func() {
		first, err := denylist.Revoke(ctx, "jti-1", time.Now().Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeTrue())

		revoked, err := denylist.IsRevoked(ctx, "jti-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())

		mr.FastForward(2 * time.Minute)

		revoked, err = denylist.IsRevoked(ctx, "jti-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())
	})

	It("skips ids that already expired", func() {
		first, err := denylist.Revoke(ctx, "jti-old", time.Now().Add(-time.Second))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeFalse())
		Expect(mr.Exists("auth:revoked:jti-old")).To(BeFalse())
	})

	It("reports only the first revocation of an id", func() {
		first, err := denylist.Revoke(ctx, "jti-2", time.Now().Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeTrue())

		again, err := denylist.Revoke(ctx, "jti-2", time.Now().Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeFalse())
	})

	It("reports an unreachable store", func() {
		mr.Close()

		_, err := denylist.IsRevoked(ctx, "jti-1")
		Expect(stdErrors.Is(err, internal.NewStoreUnavailableError("", nil))).To(BeTrue())

		_, err = denylist.Revoke(ctx, "jti-1", time.Now().Add(time.Minute))
		Expect(stdErrors.Is(err, internal.NewStoreUnavailableError("", nil))).To(BeTrue())
	})

	It("connects through NewRedisClient", func() {
		c, err := NewRedisClient(ctx, mr.Addr(), "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Close()).To(Succeed())
	})
})

var _ = Describe("MemoryDenylist", func() {
	It("expires entries by clock", func() {
		d := NewMemoryDenylist()
		now := time.Now()
		d.now = func() time.Time { return now }
		ctx := context.Background()

		first, err := d.Revoke(ctx, "a", now.Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeTrue())
		revoked, _ := d.IsRevoked(ctx, "a")
		Expect(revoked).To(BeTrue())

		again, _ := d.Revoke(ctx, "a", now.Add(time.Minute))
		Expect(again).To(BeFalse())

		now = now.Add(2 * time.Minute)
		revoked, _ = d.IsRevoked(ctx, "a")
		Expect(revoked).To(BeFalse())

		first, err = d.Revoke(ctx, "b", now.Add(time.Minute))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeTrue())
		Expect(d.revoked).NotTo(HaveKey("a"))
	})
})
