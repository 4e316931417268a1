package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"SolGuard/config"
	"SolGuard/internal/cache"
	"SolGuard/internal/queue"
	"SolGuard/internal/repository"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/metrics"
)

// Runner 评估循环，按固定间隔驱动 Evaluator。
// 多实例部署时依赖 Evaluator 的分布式锁互斥，只有抢到锁的实例执行本轮评估。
type Runner struct {
	eval     *Evaluator
	interval time.Duration
	log      *zap.Logger
}

var (
	runner     *Runner
	runnerOnce sync.Once
)

// GetRunner 获取全局 Runner 单例，依赖 config、storage、logger 均已初始化
func GetRunner() *Runner {
	runnerOnce.Do(func() {
		cfg := config.Cfg

		eval := NewEvaluator(
			repository.Schedules(),
			repository.Windows(),
			repository.Events(),
			queue.Producer{},
			cache.Locks{},
			cache.Marks{},
			EvaluatorConfig{
				SatisfyAll:   cfg.CheckInSatisfiesAll,
				StaleAfter:   time.Duration(cfg.EscalationStaleHours) * time.Hour,
				ReminderLead: time.Duration(cfg.ReminderLeadMinutes) * time.Minute,
			},
			logger.Logger,
		)

		interval := time.Duration(cfg.EvaluateIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}

		runner = &Runner{
			eval:     eval,
			interval: interval,
			log:      logger.Logger,
		}
	})
	return runner
}

// Evaluator 暴露底层评估器，打卡接口需要它走同一把锁
func (r *Runner) Evaluator() *Evaluator {
	return r.eval
}

// Run 阻塞运行评估循环直到 ctx 取消。启动时立即执行一轮，之后按间隔执行。
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("scheduler runner started",
		zap.Duration("interval", r.interval),
	)

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("scheduler runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()

	results, err := r.eval.Evaluate(ctx, start)
	if err != nil {
		r.log.Error("evaluation round failed", zap.Error(err))
	}

	if m := metrics.GetMetrics(); m != nil {
		m.RecordEvaluateRound(ctx, time.Since(start).Seconds(), err != nil)
		for _, res := range results {
			m.RecordEscalation(ctx, res.Published)
		}
	}
}
