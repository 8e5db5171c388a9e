package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sapcontrol-keeper/internal/models"

	. "github.com/smartystreets/goconvey/convey"
)

func sequence(statuses ...models.StatusCode) (StatusQuery, *int) {
	calls := 0
	return func(ctx context.Context) (models.StatusCode, error) {
		i := calls
		calls++
		if i >= len(statuses) {
			return statuses[len(statuses)-1], nil
		}
		return statuses[i], nil
	}, &calls
}

func TestPollUntil(t *testing.T) {
	Convey("Given a status query", t, func() {
		ctx := context.Background()

		Convey("When the target is reported on the first check", func() {
			query, calls := sequence(models.StatusRunning)
			start := time.Now()
			ok, err := PollUntil(ctx, query, models.StatusRunning, time.Second, 10*time.Millisecond)

			Convey("Then it returns true without waiting", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(*calls, ShouldEqual, 1)
				So(time.Since(start), ShouldBeLessThan, 100*time.Millisecond)
			})
		})

		Convey("When the status converges after a few checks", func() {
			query, calls := sequence(models.StatusStopped, models.StatusTransitioning, models.StatusError, models.StatusRunning)
			ok, err := PollUntil(ctx, query, models.StatusRunning, 5*time.Second, time.Millisecond)

			Convey("Then error statuses are tolerated and it returns true", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(*calls, ShouldEqual, 4)
			})
		})

		Convey("When the target is never reached", func() {
			query, calls := sequence(models.StatusTransitioning)
			start := time.Now()
			ok, err := PollUntil(ctx, query, models.StatusRunning, 250*time.Millisecond, 100*time.Millisecond)
			elapsed := time.Since(start)

			Convey("Then it gives up once the timeout is reached", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(*calls, ShouldBeGreaterThanOrEqualTo, 2)
				So(elapsed, ShouldBeGreaterThanOrEqualTo, 250*time.Millisecond)
				So(elapsed, ShouldBeLessThan, 250*time.Millisecond+time.Second)
			})
		})

		Convey("When the timeout is zero", func() {
			query, calls := sequence(models.StatusStopped)
			ok, err := PollUntil(ctx, query, models.StatusRunning, 0, time.Second)

			Convey("Then the status is still checked once", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(*calls, ShouldEqual, 1)
			})
		})

		Convey("When the query fails", func() {
			boom := errors.New("boom")
			query := func(ctx context.Context) (models.StatusCode, error) {
				return models.StatusError, boom
			}
			ok, err := PollUntil(ctx, query, models.StatusRunning, time.Second, time.Millisecond)

			Convey("Then the poll is aborted with the error", func() {
				So(ok, ShouldBeFalse)
				So(err, ShouldEqual, boom)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			query, _ := sequence(models.StatusStopped)
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
			ok, err := PollUntil(cctx, query, models.StatusRunning, time.Minute, 5*time.Millisecond)

			Convey("Then it stops between two checks", func() {
				So(ok, ShouldBeFalse)
				So(err, ShouldEqual, context.Canceled)
			})
		})
	})
}
