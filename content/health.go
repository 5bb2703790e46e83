package content

// Tier is a word-count band. It is derived on read and never stored.
type Tier string

const (
	TierThin   Tier = "thin"
	TierOK     Tier = "ok"
	TierStrong Tier = "strong"
)

// Thresholds are the minimum word counts for the ok and strong tiers.
type Thresholds struct {
	OK     int `mapstructure:"ok_words"`
	Strong int `mapstructure:"strong_words"`
}

// DefaultThresholds matches the bands used by existing content.
var DefaultThresholds = Thresholds{OK: 300, Strong: 800}

// Tier classifies a word count.
func (t Thresholds) Tier(words int) Tier {
	switch {
	case words >= t.Strong:
		return TierStrong
	case words >= t.OK:
		return TierOK
	default:
		return TierThin
	}
}

func (t Tier) rank() int {
	switch t {
	case TierStrong:
		return 2
	case TierOK:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is the same band as min or better.
func (t Tier) AtLeast(min Tier) bool {
	return t.rank() >= min.rank()
}
