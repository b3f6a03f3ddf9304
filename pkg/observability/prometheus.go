package observability

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ErrNoRegistry is returned when metrics are requested but Prometheus was
// not enabled.
var ErrNoRegistry = errors.New("prometheus registry not configured")

// WriteMetrics writes every metric family gathered from g to w in the
// Prometheus text exposition format.
func WriteMetrics(w io.Writer, g *prometheus.Registry) error {
	if g == nil {
		return ErrNoRegistry
	}

	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, family := range families {
		err = enc.Encode(family)
		if err != nil {
			return fmt.Errorf("encode %s: %w", family.GetName(), err)
		}
	}

	return nil
}

// WriteMetricsFile writes the metrics gathered from g to path.
func WriteMetricsFile(path string, g *prometheus.Registry) (err error) {
	if g == nil {
		return ErrNoRegistry
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return WriteMetrics(f, g)
}
