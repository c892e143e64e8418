package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPendingCompletesOnce(t *testing.T) {
	f, complete := Pending[int]()

	select {
	case <-f.Done():
		t.Fatal("future completed before complete was called")
	default:
	}

	complete(1, nil)
	complete(2, errors.New("ignored"))

	v, err := f.Await(context.Background())
	if v != 1 || err != nil {
		t.Errorf("got (%d, %v), want (1, nil)", v, err)
	}
}

func TestAwaitCancelled(t *testing.T) {
	f, complete := Pending[int]()
	defer complete(0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAwaitAll(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	testCases := []struct {
		name    string
		futures []*Future[int]
		want    []int
		errs    []error
	}{
		{
			name:    "all succeed",
			futures: []*Future[int]{FromValue(1), FromValue(2), FromValue(3)},
			want:    []int{1, 2, 3},
		},
		{
			name:    "errors are joined",
			futures: []*Future[int]{FromError[int](errA), FromValue(2), FromError[int](errC)},
			want:    []int{0, 2, 0},
			errs:    []error{errA, errC},
		},
		{
			name:    "no futures",
			futures: nil,
			want:    []int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AwaitAll(context.Background(), tc.futures...)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("got %v, want %v", got, tc.want)
				}
			}
			if len(tc.errs) == 0 && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			for _, e := range tc.errs {
				if !errors.Is(err, e) {
					t.Errorf("expected %v in %v", e, err)
				}
			}
		})
	}
}
