package salesmetrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/warranty/internal/config"
	obstracing "github.com/smallbiznis/warranty/internal/observability/tracing"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"

	pushTimeout = 5 * time.Second
)

// Pusher sends a snapshot of the sales registry upstream.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher returns nil when pushing is switched off. An enabled but unusable
// configuration fails start-up.
func NewPusher(cfg config.Config) (Pusher, error) {
	sc := cfg.SalesMetrics
	if !sc.Enabled {
		return nil, nil
	}

	endpoint := strings.TrimSpace(sc.Endpoint)
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("sales metrics endpoint %q: %w", endpoint, err)
	}

	switch exporter := strings.ToLower(strings.TrimSpace(sc.Exporter)); exporter {
	case ExporterRemoteWrite:
		return NewRemoteWrite(endpoint, sc.AuthToken), nil
	case ExporterPushgateway:
		gw, err := NewPushgateway(endpoint, cfg.AppName, map[string]string{"environment": cfg.Environment})
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown sales metrics exporter %q", exporter)
	}
}

func pushClient() *http.Client {
	return obstracing.WrapHTTPClient(&http.Client{Timeout: pushTimeout})
}

// RemoteWrite posts samples using the Prometheus remote-write protocol.
type RemoteWrite struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewRemoteWrite(endpoint, token string) *RemoteWrite {
	return &RemoteWrite{
		endpoint: endpoint,
		token:    strings.TrimSpace(token),
		client:   pushClient(),
	}
}

func (p *RemoteWrite) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	body, err := encodeWriteRequest(gatherer, time.Now())
	if err != nil || body == nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write to %s: %s", p.endpoint, resp.Status)
	}
	return nil
}

// encodeWriteRequest returns the snappy-compressed WriteRequest, or nil when
// there is nothing to send.
func encodeWriteRequest(gatherer prometheus.Gatherer, now time.Time) ([]byte, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather sales metrics: %w", err)
	}
	series := toSeries(families, now.UnixMilli())
	if len(series) == 0 {
		return nil, nil
	}

	raw, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

// toSeries flattens counters and gauges into one sample each. Other metric
// types are skipped.
func toSeries(families []*dto.MetricFamily, timestampMs int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	for _, family := range families {
		for _, m := range family.GetMetric() {
			value, ok := sampleValue(family.GetType(), m)
			if !ok {
				continue
			}

			labels := []prompb.Label{{Name: "__name__", Value: family.GetName()}}
			for _, lp := range m.GetLabel() {
				labels = append(labels, prompb.Label{Name: lp.GetName(), Value: lp.GetValue()})
			}
			slices.SortFunc(labels, func(a, b prompb.Label) int {
				return strings.Compare(a.Name, b.Name)
			})

			out = append(out, prompb.TimeSeries{
				Labels:  labels,
				Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
			})
		}
	}
	return out
}

func sampleValue(kind dto.MetricType, m *dto.Metric) (float64, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		if c := m.GetCounter(); c != nil {
			return c.GetValue(), true
		}
	case dto.MetricType_GAUGE:
		if g := m.GetGauge(); g != nil {
			return g.GetValue(), true
		}
	}
	return 0, false
}

// Pushgateway replaces the job's group on a Prometheus Pushgateway.
type Pushgateway struct {
	endpoint string
	job      string
	grouping map[string]string
	client   *http.Client
}

func NewPushgateway(endpoint, job string, grouping map[string]string) (*Pushgateway, error) {
	job = strings.TrimSpace(job)
	if job == "" {
		return nil, errors.New("pushgateway job name is required")
	}

	labels := make(map[string]string, len(grouping))
	for k, v := range grouping {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			labels[k] = v
		}
	}
	return &Pushgateway{endpoint: endpoint, job: job, grouping: labels, client: pushClient()}, nil
}

func (p *Pushgateway) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	pusher := push.New(p.endpoint, p.job).Client(p.client).Gatherer(gatherer)
	for _, k := range slices.Sorted(maps.Keys(p.grouping)) {
		pusher = pusher.Grouping(k, p.grouping[k])
	}
	return pusher.PushContext(ctx)
}
