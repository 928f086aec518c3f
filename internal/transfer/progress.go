package transfer

// ChunkSize is the reference chunk length.
const ChunkSize = 1 << 20

// UploadFraction is the share of overall progress given to the upload; the
// rest is left for the processing that follows.
const UploadFraction = 0.9

// Progress returns (sent/total)*fraction, clamped to [0,fraction].
func Progress(sent, total int, fraction float64) float64 {
	if total <= 0 {
		return 0
	}
	if fraction <= 0 || fraction > 1 {
		fraction = UploadFraction
	}
	if sent > total {
		sent = total
	}
	if sent < 0 {
		sent = 0
	}
	return float64(sent) / float64(total) * fraction
}

// ChunkCount returns how many chunks of size chunk cover n bytes.
func ChunkCount(n int64, chunk int) int {
	if n <= 0 || chunk <= 0 {
		return 0
	}
	return int((n + int64(chunk) - 1) / int64(chunk))
}
