package service

import (
	"context"
	"sync/atomic"
	"time"

	"EncounterSync/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PassResult 一轮采集的统计
type PassResult struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
}

// runUnits 有界并发执行采集单元；单元失败记录日志后跳过，不中断本轮
func runUnits[T any](ctx context.Context, logger *logrus.Logger, pass string, workers int, units []T,
	describe func(T) logrus.Fields, fn func(context.Context, T) error) PassResult {
	start := time.Now()
	defer metrics.ObserveSince(metrics.SyncDuration, pass, start)

	if workers <= 0 {
		workers = 1
	}
	var ok, skipped int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range units {
		g.Go(func() error {
			if gctx.Err() != nil {
				atomic.AddInt64(&skipped, 1)
				return nil
			}
			if err := fn(gctx, u); err != nil {
				atomic.AddInt64(&skipped, 1)
				metrics.SyncUnitsTotal.WithLabelValues(pass, metrics.ResultSkipped).Inc()
				logger.WithError(err).WithFields(describe(u)).WithField("pass", pass).Warn("采集单元失败，跳过")
				return nil
			}
			atomic.AddInt64(&ok, 1)
			metrics.SyncUnitsTotal.WithLabelValues(pass, metrics.ResultOK).Inc()
			return nil
		})
	}
	_ = g.Wait()

	res := PassResult{OK: int(ok), Skipped: int(skipped)}
	logger.WithFields(logrus.Fields{
		"pass":    pass,
		"ok":      res.OK,
		"skipped": res.Skipped,
		"elapsed": time.Since(start).String(),
	}).Info("采集轮次完成")
	return res
}

// callTimeout 单次外部调用的超时上下文
func callTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func addInt64(p *int64, n int64) { atomic.AddInt64(p, n) }
