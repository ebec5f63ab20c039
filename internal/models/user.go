package models

// LicenseTier describes the subscription level attached to a user account.
type LicenseTier string

const (
	TierNone       LicenseTier = "none"
	TierIndividual LicenseTier = "individual"
	TierTeam       LicenseTier = "team"
)

// IsValidTier reports whether the tier is one of the known values.
func IsValidTier(tier LicenseTier) bool {
	switch tier {
	case TierNone, TierIndividual, TierTeam:
		return true
	}
	return false
}

// NormalizeTier maps unknown or empty tier strings to TierNone so that
// values read back from the database never widen access.
func NormalizeTier(tier LicenseTier) LicenseTier {
	if !IsValidTier(tier) {
		return TierNone
	}
	return tier
}

// Qualifies reports whether the tier grants access to the full catalog.
func (t LicenseTier) Qualifies() bool {
	return t == TierIndividual || t == TierTeam
}

type User struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	PasswordHash     string      `json:"-"`
	IsActive         bool        `json:"is_active"`
	HasActiveLicense bool        `json:"has_active_license"`
	LicenseTier      LicenseTier `json:"license_tier"`
}

// HasQualifyingLicense reports whether the user's license alone is enough
// to access any catalog item, without consulting purchase records.
func (u User) HasQualifyingLicense() bool {
	return u.HasActiveLicense && u.LicenseTier.Qualifies()
}
