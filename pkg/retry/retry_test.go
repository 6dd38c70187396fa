package retry_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/retry"
)

var _ = Describe("Retrier", func() {
	var (
		cfg     *retry.Config
		retries []int
	)

	BeforeEach(func() {
		retries = nil
		cfg = &retry.Config{
			MaxRetries:    3,
			BackoffFactor: 2,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			OnRetry: func(attempt int, _ error, _ time.Duration) {
				retries = append(retries, attempt)
			},
		}
	})

	It("returns immediately on success", func() {
		calls := 0
		err := retry.NewRetrier(cfg).Do(context.Background(), func(context.Context) error {
			calls++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("retries until the operation succeeds", func() {
		calls := 0
		err := retry.NewRetrier(cfg).Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
		Expect(retries).To(Equal([]int{1, 2}))
	})

	It("gives up after MaxRetries", func() {
		calls := 0
		err := retry.NewRetrier(cfg).Do(context.Background(), func(context.Context) error {
			calls++
			return errors.New("down")
		})
		Expect(err).To(MatchError("down"))
		Expect(calls).To(Equal(4))
	})

	It("stops on permanent errors", func() {
		boom := errors.New("bad dsn")
		calls := 0
		err := retry.NewRetrier(cfg).Do(context.Background(), func(context.Context) error {
			calls++
			return retry.Permanent(boom)
		})
		Expect(err).To(Equal(boom))
		Expect(calls).To(Equal(1))
	})

	It("honors context cancellation", func() {
		cfg.InitialDelay = time.Hour
		cfg.MaxDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := retry.NewRetrier(cfg).Do(ctx, func(context.Context) error {
			return errors.New("down")
		})
		Expect(err).To(MatchError(context.Canceled))
	})
})
