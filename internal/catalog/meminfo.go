package catalog

const fallbackRAMGB = 8.0

// DetectRAMGB returns the total physical memory in GB, or 8 when it cannot
// be determined.
func DetectRAMGB() float64 {
	total, ok := totalMemoryBytes()
	if !ok || total == 0 {
		logger.Warn("unable to detect RAM, assuming default", "ram_gb", fallbackRAMGB)
		return fallbackRAMGB
	}
	return float64(total) / (1 << 30)
}
