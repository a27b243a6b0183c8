package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/ajitpratap0/objectpool/pkg/errors"
	"github.com/ajitpratap0/objectpool/pkg/json"
	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// Report is the outcome of a benchmark run.
type Report struct {
	Pool          string         `json:"pool"`
	Iterations    int            `json:"iterations"`
	Workers       int            `json:"workers"`
	Count         int            `json:"pool_count"`
	Duration      time.Duration  `json:"duration_ns"`
	UsesPerSecond float64        `json:"uses_per_second"`
	Stats         pool.Stats     `json:"stats"`
	Resources     *ResourceUsage `json:"resources,omitempty"`
}

// Write renders the report in the given format, "text" or "json".
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return r.WriteText(w)
	case "json":
		return r.WriteJSON(w)
	default:
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("unknown report format %q", format)).
			WithDetail("format", format)
	}
}

// WriteText writes a human-readable report. The first line is the pool
// count.
func (r *Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, `Pool Count: %d

Pool: %s
Iterations: %d
Workers: %d
Duration: %v
Uses/sec: %.0f
Created: %d
Reused: %d
Limit Rejections: %d
`,
		r.Count,
		r.Pool,
		r.Iterations,
		r.Workers,
		r.Duration,
		r.UsesPerSecond,
		r.Stats.Created,
		r.Stats.Reused,
		r.Stats.LimitRejections,
	)
	if err != nil || r.Resources == nil {
		return err
	}

	_, err = fmt.Fprintf(w, `
Resources:
- CPU: %.2f%%
- RSS: %d MB
- Heap: %d MB
- Goroutines: %d
- GC Count: %d
`,
		r.Resources.CPUPercent,
		r.Resources.MemoryRSS/1024/1024,
		r.Resources.HeapAlloc/1024/1024,
		r.Resources.GoroutineCount,
		r.Resources.NumGC,
	)
	return err
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	if err := json.MarshalIndentToWriter(w, r, "", "  "); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write report")
	}
	return nil
}
