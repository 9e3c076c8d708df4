package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func BenchmarkLiveness(b *testing.B) {
	checker := New(time.Second)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = checker.Liveness()
	}
}

func BenchmarkReadiness(b *testing.B) {
	for _, n := range []int{0, 1, 5} {
		b.Run(fmt.Sprintf("%d checks", n), func(b *testing.B) {
			checker := New(time.Second)
			for i := 0; i < n; i++ {
				checker.Register(fmt.Sprintf("dep%d", i), func(ctx context.Context) error { return nil })
			}
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = checker.Readiness(ctx)
			}
		})
	}
}

func BenchmarkReadinessDegraded(b *testing.B) {
	checker := New(time.Second)
	checker.Register("listeners", func(ctx context.Context) error { return nil })
	checker.Register("accesslog", func(ctx context.Context) error {
		return errors.New("store unreachable")
	})
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = checker.Readiness(ctx)
	}
}

func BenchmarkLivenessHandler(b *testing.B) {
	checker := New(time.Second)
	handler := checker.LivenessHandler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler(rec, req)
	}
}

func BenchmarkReadinessHandlerParallel(b *testing.B) {
	checker := New(time.Second)
	checker.Register("listeners", func(ctx context.Context) error { return nil })
	handler := checker.ReadinessHandler()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rec := httptest.NewRecorder()
			handler(rec, req)
		}
	})
}
