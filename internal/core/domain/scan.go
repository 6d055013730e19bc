package domain

// ScanStatus is the antivirus verdict for one byte buffer.
type ScanStatus string

const (
	ScanClean       ScanStatus = "clean"
	ScanInfected    ScanStatus = "infected"
	ScanError       ScanStatus = "error"
	ScanTimeout     ScanStatus = "timeout"
	ScanUnavailable ScanStatus = "unavailable"
)

// ScanResult is the parsed outcome of one scanner invocation. Threat is set
// only for infected, Detail carries scanner output for error/timeout.
type ScanResult struct {
	Status ScanStatus
	Threat string
	Detail string
}
