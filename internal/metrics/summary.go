package metrics

import (
	"fmt"

	"github.com/pterm/pterm"
)

// byteUnits defines the units for formatting byte rates in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// formatRate formats a bytes-per-second figure.
func formatRate(b float64) string {
	unitIdx := 0
	for b > 999 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%.1f %s/s", b, byteUnits[unitIdx])
}

// ms renders a duration in milliseconds with two decimals, matching the
// summary format users compare runs against.
func ms(d float64) string {
	return fmt.Sprintf("%.2f ms", d)
}

// RenderSummary prints the playback metrics summary table to the terminal.
func RenderSummary(s Stats) {
	pterm.DefaultSection.Println("Playback Metrics Summary")

	data := pterm.TableData{
		{"Total Frames Played", fmt.Sprintf("%d", s.FramesPlayed)},
		{"Total Frames Dropped", fmt.Sprintf("%d", s.FramesDropped)},
		{"Packets Lost (integrity)", fmt.Sprintf("%d", s.FramesLost)},
		{"Total Stalls", fmt.Sprintf("%d", s.Stalls)},
		{"Pre-buffer Time", ms(float64(s.Prebuffer.Microseconds()) / 1000.0)},
		{"Max Delay", ms(float64(s.MaxDelay.Microseconds()) / 1000.0)},
		{"Average Delay", ms(float64(s.AvgDelay.Microseconds()) / 1000.0)},
		{"95th Percentile Delay", ms(float64(s.P95Delay.Microseconds()) / 1000.0)},
		{"Average Stall Duration", ms(float64(s.AvgStall.Microseconds()) / 1000.0)},
		{"Bytes Delivered", fmt.Sprintf("%d", s.BytesDelivered)},
		{"Goodput", formatRate(s.GoodputBytes)},
	}

	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}
