package zone

// Metrics is a snapshot of a zone's usage.
type Metrics struct {
	Name        string  `json:"name"`
	Base        int     `json:"base"`
	Size        int     `json:"size"`
	Used        int     `json:"used"`
	Free        int     `json:"free"`
	Utilization float64 `json:"utilization"` // Used / Size, 0 for an empty zone
}

// Utilization returns the ratio of used to total bytes (0.0 to 1.0).
func (z *Zone) Utilization() float64 {
	if z.hdr.size == 0 {
		return 0
	}
	return float64(z.hdr.used) / float64(z.hdr.size)
}

func (z *Zone) Metrics() Metrics {
	return Metrics{
		Name:        z.name,
		Base:        z.Base(),
		Size:        z.Size(),
		Used:        z.Used(),
		Free:        z.Free(),
		Utilization: z.Utilization(),
	}
}
