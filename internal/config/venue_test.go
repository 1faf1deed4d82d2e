package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVenue(t *testing.T) {
	raw := []byte(`
kidFullDayPrice: "248"
extraParentFullDayPrice: "50"
freeParentsPerKid: 1
sockPrice: "15"
holidayKidFullDayPrice: "298"
holidays: ["2024-10-01"]
workdays: ["2024-10-12"]
`)
	v, err := ParseVenue(raw)
	require.NoError(t, err)

	assert.Equal(t, "248", v.KidFullDayPrice.String())
	assert.Equal(t, "15", v.SockPrice.String())
	assert.Equal(t, "0.02", v.TableOrderPrice.String())
	assert.Equal(t, "1", v.PointsPerYuan.String())
	require.NotNil(t, v.HolidayKidFullDayPrice)
	assert.Equal(t, "298", v.HolidayKidFullDayPrice.String())

	assert.True(t, v.OffDay("2024-10-01"))  // Tuesday holiday
	assert.False(t, v.OffDay("2024-10-12")) // Saturday work day
	assert.True(t, v.OffDay("2024-10-13"))
	assert.False(t, v.OffDay("2024-10-14"))

	assert.Equal(t, time.Sunday, v.LimitWeekday("2024-10-01"))
	assert.Equal(t, time.Monday, v.LimitWeekday("2024-10-12"))
	assert.Equal(t, time.Wednesday, v.LimitWeekday("2024-10-16"))
}

func TestParseVenueRejectsBadValues(t *testing.T) {
	_, err := ParseVenue([]byte(`kidFullDayPrice: "abc"`))
	assert.Error(t, err)

	_, err = ParseVenue([]byte(`sockPrice: "-1"`))
	assert.Error(t, err)

	_, err = ParseVenue([]byte(`holidays: ["10/01/2024"]`))
	assert.Error(t, err)
}

func TestLoadValidatesProdSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/minimars")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GATEWAY_SECRET", "g4teway")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Dev())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("SWEEP_INTERVAL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "SWEEP_INTERVAL")
}
