package ferryq

// RejectReason identifies a single validation violation.
type RejectReason string

const (
	// ReasonFileEmpty indicates a zero or negative declared size.
	ReasonFileEmpty RejectReason = "file_empty"
	// ReasonFileTooLarge indicates the declared size exceeds the policy cap.
	ReasonFileTooLarge RejectReason = "file_too_large"
	// ReasonUnsupportedType indicates the declared type is not on the allow-list.
	ReasonUnsupportedType RejectReason = "unsupported_type"
)

// DefaultMaxPayloadSize is the admission size cap applied when the
// configuration leaves MaxPayloadSize at zero.
const DefaultMaxPayloadSize int64 = 50 << 30 // 50 GiB

// Policy holds the admission validation rules.
type Policy struct {
	// MaxPayloadSize is the largest accepted declared size in bytes.
	// Zero means DefaultMaxPayloadSize.
	MaxPayloadSize int64
	// AllowedTypes is the set of accepted declared types. Empty means
	// every type is accepted.
	AllowedTypes []string
}

// Validate checks the submitted metadata against the policy and returns every
// violated rule. All checks run; nothing short-circuits, so the caller sees
// the complete list of problems at once. A nil or empty result means accepted.
// Validate has no side effects and is safe for concurrent use.
func (p Policy) Validate(meta FileMeta) []RejectReason {
	var reasons []RejectReason

	maxSize := p.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPayloadSize
	}
	if meta.SizeBytes <= 0 {
		reasons = append(reasons, ReasonFileEmpty)
	} else if meta.SizeBytes > maxSize {
		reasons = append(reasons, ReasonFileTooLarge)
	}

	if len(p.AllowedTypes) > 0 && !p.allows(meta.Type) {
		reasons = append(reasons, ReasonUnsupportedType)
	}

	return reasons
}

func (p Policy) allows(typ string) bool {
	for _, t := range p.AllowedTypes {
		if t == typ {
			return true
		}
	}
	return false
}
