package roomview

import "fmt"

// FormatHeadline renders the on-map reading for a zone: whole numbers with a unit suffix.
func FormatHeadline(z Zone, m Metric) string {
	switch m {
	case MetricBacterial:
		return fmt.Sprintf("%.0f CFU", z.BacterialCount)
	case MetricUV:
		return fmt.Sprintf("%.0f%%", z.UVIntensity)
	}
	return fmt.Sprintf("%.0f%%", z.ContaminationLevel)
}

// ZoneDetail is the inspected zone as shown in the detail panel.
type ZoneDetail struct {
	ID            string `json:"id"`
	Surface       string `json:"surface"`
	Contamination string `json:"contamination"`
	Bacterial     string `json:"bacterial"`
	UV            string `json:"uv"`
	LastCleaned   string `json:"lastCleaned"`
}

func FormatDetail(z Zone) ZoneDetail {
	return ZoneDetail{
		ID:            z.ID,
		Surface:       z.Surface,
		Contamination: fmt.Sprintf("%.1f%%", z.ContaminationLevel),
		Bacterial:     fmt.Sprintf("%.0f CFU", z.BacterialCount),
		UV:            fmt.Sprintf("%.1f%%", z.UVIntensity),
		LastCleaned:   z.LastCleaned,
	}
}
