package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/domain"
)

// Text renders the fixed-precision console summary of a run.
func Text(res domain.Result) string {
	var b strings.Builder
	lv := res.Thresholds.Levels

	b.WriteString("\nCECL PD Threshold Demo Summary\n")
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "N loans               : %d\n", res.N)
	fmt.Fprintf(&b, "Prior a0, b0          : %.3f, %.3f\n", res.Prior.A, res.Prior.B)
	fmt.Fprintf(&b, "Mean PD               : %.6f\n", res.MeanPD)
	if res.Observation.Kind == domain.ObservationObserved {
		fmt.Fprintf(&b, "Observed defaults D   : %.0f\n", res.Observation.Defaults)
	} else {
		fmt.Fprintf(&b, "Expected defaults D*  : %.2f\n", res.Observation.Defaults)
	}
	fmt.Fprintf(&b, "Posterior a1, b1      : %.3f, %.3f\n", res.Posterior.A, res.Posterior.B)
	fmt.Fprintf(&b, "%-22s: %.6f\n", fmt.Sprintf("Posterior %s%% PD", domain.PercentLabel(lv.Low)), res.Thresholds.Low)
	fmt.Fprintf(&b, "%-22s: %.6f\n", fmt.Sprintf("Posterior %s%% PD", domain.PercentLabel(lv.High)), res.Thresholds.High)
	if res.Clamped {
		b.WriteString("Note                  : sample variance clamped for Beta fit\n")
	}
	if res.ChartPath != "" {
		fmt.Fprintf(&b, "\nSaved chart → %s\n", res.ChartPath)
	}
	return b.String()
}

// JSON renders the result as indented JSON.
func JSON(res domain.Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return append(data, '\n'), nil
}

// Printer writes the summary of each result to Out in Format.
type Printer struct {
	Out    io.Writer
	Format string
}

func (p *Printer) Name() string { return "report" }

func (p *Printer) Emit(res domain.Result) error {
	var out []byte
	switch p.Format {
	case config.FormatJSON:
		data, err := JSON(res)
		if err != nil {
			return err
		}
		out = data
	case config.FormatText, "":
		out = []byte(Text(res))
	default:
		return fmt.Errorf("unknown report format %q", p.Format)
	}

	if _, err := p.Out.Write(out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
