package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 调度器指标
	WindowsOpenedTotal    metric.Int64Counter
	WindowsMissedTotal    metric.Int64Counter
	EscalationsTotal      metric.Int64Counter
	CheckInsTotal         metric.Int64Counter
	EvaluateDuration      metric.Float64Histogram
	EvaluateFailuresTotal metric.Int64Counter

	// 短信指标
	SMSSentTotal    metric.Int64Counter
	SMSSendDuration metric.Float64Histogram
}

var (
	metrics *OTelMetrics
	meter   = otel.Meter("solguard")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.WindowsOpenedTotal, err = meter.Int64Counter(
		"checkin_windows_opened_total",
		metric.WithDescription("Total number of check-in windows opened"),
		metric.WithUnit("{window}"),
	)
	if err != nil {
		return err
	}

	metrics.WindowsMissedTotal, err = meter.Int64Counter(
		"checkin_windows_missed_total",
		metric.WithDescription("Total number of check-in windows missed"),
		metric.WithUnit("{window}"),
	)
	if err != nil {
		return err
	}

	metrics.EscalationsTotal, err = meter.Int64Counter(
		"escalations_total",
		metric.WithDescription("Total number of escalations dispatched"),
		metric.WithUnit("{escalation}"),
	)
	if err != nil {
		return err
	}

	metrics.CheckInsTotal, err = meter.Int64Counter(
		"checkins_total",
		metric.WithDescription("Total number of user check-ins recorded"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		return err
	}

	metrics.EvaluateDuration, err = meter.Float64Histogram(
		"scheduler_evaluate_duration_seconds",
		metric.WithDescription("Time spent in one scheduler evaluation round"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.EvaluateFailuresTotal, err = meter.Int64Counter(
		"scheduler_evaluate_failures_total",
		metric.WithDescription("Total number of failed evaluation rounds"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	metrics.SMSSentTotal, err = meter.Int64Counter(
		"sms_sent_total",
		metric.WithDescription("Total number of SMS sent"),
		metric.WithUnit("{sms}"),
	)
	if err != nil {
		return err
	}

	metrics.SMSSendDuration, err = meter.Float64Histogram(
		"sms_send_duration_seconds",
		metric.WithDescription("Time spent sending SMS in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil，调用方需判空
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordWindowOpened 记录开窗
func (m *OTelMetrics) RecordWindowOpened(ctx context.Context, count int64) {
	m.WindowsOpenedTotal.Add(ctx, count)
}

// RecordWindowMissed 记录漏卡
func (m *OTelMetrics) RecordWindowMissed(ctx context.Context, count int64) {
	m.WindowsMissedTotal.Add(ctx, count)
}

// RecordEscalation 记录一次告警投递结果
func (m *OTelMetrics) RecordEscalation(ctx context.Context, published bool) {
	status := "published"
	if !published {
		status = "skipped"
	}
	m.EscalationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordCheckIn 记录用户打卡
func (m *OTelMetrics) RecordCheckIn(ctx context.Context, satisfiedWindows int) {
	m.CheckInsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("satisfied_windows", satisfiedWindows),
	))
}

// RecordEvaluateRound 记录一轮评估
func (m *OTelMetrics) RecordEvaluateRound(ctx context.Context, duration float64, failed bool) {
	m.EvaluateDuration.Record(ctx, duration)
	if failed {
		m.EvaluateFailuresTotal.Add(ctx, 1)
	}
}

// RecordSMSSent 记录短信发送
func (m *OTelMetrics) RecordSMSSent(ctx context.Context, template string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.SMSSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", template),
		attribute.String("status", status),
	))
	m.SMSSendDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("template", template),
	))
}
