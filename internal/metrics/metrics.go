package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clubhub"

var sessionStates = []string{"UNKNOWN", "UNAUTHENTICATED", "PENDING_VERIFICATION", "AUTHENTICATED"}

// Session counts session manager transitions. A nil *Session is valid and
// records nothing.
type Session struct {
	signIns       *prometheus.CounterVec
	signUps       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	signOuts      *prometheus.CounterVec
	state         *prometheus.GaugeVec
}

func NewSession(reg prometheus.Registerer) *Session {
	m := &Session{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "sign_ins_total",
			Help: "Sign-in attempts by result.",
		}, []string{"result"}),
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "sign_ups_total",
			Help: "Sign-up attempts by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "verifications_total",
			Help: "Verification attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "refreshes_total",
			Help: "Token refreshes by result.",
		}, []string{"result"}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "sign_outs_total",
			Help: "Sign-outs by reason.",
		}, []string{"reason"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "session", Name: "state",
			Help: "1 for the current session state, 0 otherwise.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.signIns, m.signUps, m.verifications, m.refreshes, m.signOuts, m.state)
	m.SetState("UNKNOWN")
	return m
}

func (m *Session) SignIn(result string) {
	if m != nil {
		m.signIns.WithLabelValues(result).Inc()
	}
}

func (m *Session) SignUp(result string) {
	if m != nil {
		m.signUps.WithLabelValues(result).Inc()
	}
}

func (m *Session) Verification(result string) {
	if m != nil {
		m.verifications.WithLabelValues(result).Inc()
	}
}

func (m *Session) Refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Session) SignOut(reason string) {
	if m != nil {
		m.signOuts.WithLabelValues(reason).Inc()
	}
}

func (m *Session) SetState(state string) {
	if m == nil {
		return
	}
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "devserver", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "devserver", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
