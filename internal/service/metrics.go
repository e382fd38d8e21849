package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 发布流水线指标
type Metrics struct {
	Publication  *prometheus.CounterVec
	Notification *prometheus.CounterVec
}

// NewMetrics 创建并注册指标，reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Publication: f.NewCounterVec(prometheus.CounterOpts{
			Name: "well_publication_total",
			Help: "Publication attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Notification: f.NewCounterVec(prometheus.CounterOpts{
			Name: "well_notification_total",
			Help: "Notification fan-out results by type.",
		}, []string{"type", "result"}),
	}
}
