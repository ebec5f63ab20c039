package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLicenseTierQualifies(t *testing.T) {
	assert.True(t, TierIndividual.Qualifies())
	assert.True(t, TierTeam.Qualifies())
	assert.False(t, TierNone.Qualifies())
	assert.False(t, LicenseTier("enterprise").Qualifies())
}

func TestNormalizeTier(t *testing.T) {
	assert.Equal(t, TierTeam, NormalizeTier(TierTeam))
	assert.Equal(t, TierNone, NormalizeTier(""))
	assert.Equal(t, TierNone, NormalizeTier("gold"))
}

func TestHasQualifyingLicense(t *testing.T) {
	assert.True(t, User{HasActiveLicense: true, LicenseTier: TierIndividual}.HasQualifyingLicense())
	assert.False(t, User{HasActiveLicense: false, LicenseTier: TierIndividual}.HasQualifyingLicense())
	assert.False(t, User{HasActiveLicense: true, LicenseTier: TierNone}.HasQualifyingLicense())
}

func TestTeamInviteLifecycle(t *testing.T) {
	now := time.Now()
	invite := TeamInvite{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, invite.IsExpired(now))
	assert.True(t, invite.IsExpired(now.Add(2*time.Hour)))
	assert.False(t, invite.IsUsed())

	accepted := now
	invite.AcceptedAt = &accepted
	assert.True(t, invite.IsUsed())
}
