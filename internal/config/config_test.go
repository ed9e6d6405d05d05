package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Business: BusinessConfig{
			Timezone: "Europe/Berlin",
			Hours: map[string]WindowConfig{
				"monday": {Start: "15:00", End: "17:00"},
				"friday": {Start: "15:30", End: "19:00"},
			},
		},
		Slots: SlotsConfig{DurationMin: 20, StepMin: 30},
		Store: StoreConfig{
			Backend:  "airtable",
			Airtable: AirtableConfig{BaseID: "appX", APIKey: "key"},
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadSlotConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Slots.DurationMin = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Slots.BufferMin = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Business.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadHours(t *testing.T) {
	cfg := validConfig()
	cfg.Business.Hours["someday"] = WindowConfig{Start: "15:00", End: "17:00"}
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Business.Hours["monday"] = WindowConfig{Start: "17:00", End: "15:00"}
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Business.Hours["monday"] = WindowConfig{Start: "25:00", End: "26:00"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsWeekendHours(t *testing.T) {
	for _, day := range []string{"saturday", "sunday"} {
		cfg := validConfig()
		cfg.Business.Hours[day] = WindowConfig{Start: "10:00", End: "14:00"}
		assert.Error(t, cfg.Validate(), day)
	}
}

func TestValidateRequiresBackendCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Airtable.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Backend = "baserow"
	assert.Error(t, cfg.Validate())
	cfg.Store.Baserow = BaserowConfig{Token: "tok", BookingsTable: "1", DisabledDatesTable: "2"}
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Backend = "postgres"
	assert.Error(t, cfg.Validate())
	cfg.Store.Database = DatabaseConfig{Host: "localhost", Name: "booking"}
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Backend = "filing-cabinet"
	assert.Error(t, cfg.Validate())
}

func TestWeekHoursConversion(t *testing.T) {
	cfg := validConfig()
	hours := cfg.Business.WeekHours()

	require.NotNil(t, hours[1])
	assert.Equal(t, "15:00", hours[1].Start)
	require.NotNil(t, hours[5])
	assert.Equal(t, "15:30", hours[5].Start)
	assert.Nil(t, hours[6])
	assert.Nil(t, hours[7])
}

func TestLocationFallsBackToUTC(t *testing.T) {
	b := &BusinessConfig{Timezone: "garbage"}
	assert.Equal(t, time.UTC, b.Location())
}

func TestDatabaseDSN(t *testing.T) {
	db := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "booking", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=booking sslmode=disable", db.DSN())
}
