package entities

// SizeCategory classifies a bank by total assets.
type SizeCategory string

// Size categories, by total assets.
const (
	SizeMega      SizeCategory = "mega"      // > $500B
	SizeLarge     SizeCategory = "large"     // $100B - $500B
	SizeRegional  SizeCategory = "regional"  // $10B - $100B
	SizeCommunity SizeCategory = "community" // $1B - $10B
	SizeSmall     SizeCategory = "small"     // < $1B
	SizeUnknown   SizeCategory = "unknown"
)

// SizeCategoryForAssets derives the size category from total assets
// expressed in millions of dollars.
func SizeCategoryForAssets(totalAssetsMillions float64) SizeCategory {
	if totalAssetsMillions <= 0 {
		return SizeUnknown
	}
	billions := totalAssetsMillions / 1000
	switch {
	case billions > 500:
		return SizeMega
	case billions > 100:
		return SizeLarge
	case billions > 10:
		return SizeRegional
	case billions > 1:
		return SizeCommunity
	default:
		return SizeSmall
	}
}

// QualityStatus summarizes how complete an entity's data is.
type QualityStatus string

// Quality statuses.
const (
	QualityExcellent QualityStatus = "excellent" // >= 90% complete
	QualityGood      QualityStatus = "good"      // 70-90% complete
	QualityFair      QualityStatus = "fair"      // 50-70% complete
	QualityPoor      QualityStatus = "poor"      // < 50% complete
	QualityUnknown   QualityStatus = "unknown"   // not yet assessed
)

// QualityForCompleteness maps a completeness score to a quality status.
func QualityForCompleteness(completeness float64) QualityStatus {
	switch {
	case completeness >= 0.9:
		return QualityExcellent
	case completeness >= 0.7:
		return QualityGood
	case completeness >= 0.5:
		return QualityFair
	case completeness > 0:
		return QualityPoor
	default:
		return QualityUnknown
	}
}
