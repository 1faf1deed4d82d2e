package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/uicestone/minimars-server-sub000/internal/pkg/dates"
)

// Venue holds pricing tunables. Values are read once and never mutated;
// callers pass the snapshot into pricing and settlement.
type Venue struct {
	KidFullDayPrice         decimal.Decimal
	ExtraParentFullDayPrice decimal.Decimal
	FreeParentsPerKid       int
	SockPrice               decimal.Decimal
	TableOrderPrice         decimal.Decimal
	PointsPerYuan           decimal.Decimal
	HolidayKidFullDayPrice  *decimal.Decimal

	// Off days are public holidays, work days are weekends turned into
	// working days. Both are YYYY-MM-DD.
	Holidays map[string]bool
	Workdays map[string]bool
}

type venueFile struct {
	KidFullDayPrice         string   `yaml:"kidFullDayPrice"`
	ExtraParentFullDayPrice string   `yaml:"extraParentFullDayPrice"`
	FreeParentsPerKid       *int     `yaml:"freeParentsPerKid"`
	SockPrice               string   `yaml:"sockPrice"`
	TableOrderPrice         string   `yaml:"tableOrderPrice"`
	PointsPerYuan           string   `yaml:"pointsPerYuan"`
	HolidayKidFullDayPrice  string   `yaml:"holidayKidFullDayPrice"`
	Holidays                []string `yaml:"holidays"`
	Workdays                []string `yaml:"workdays"`
}

// DefaultVenue is used when no venue file is configured.
func DefaultVenue() *Venue {
	return &Venue{
		KidFullDayPrice:         decimal.NewFromInt(198),
		ExtraParentFullDayPrice: decimal.NewFromInt(50),
		FreeParentsPerKid:       1,
		SockPrice:               decimal.NewFromInt(10),
		TableOrderPrice:         decimal.RequireFromString("0.02"),
		PointsPerYuan:           decimal.NewFromInt(1),
		Holidays:                map[string]bool{},
		Workdays:                map[string]bool{},
	}
}

// LoadVenue reads a YAML venue file. An empty path yields DefaultVenue.
func LoadVenue(path string) (*Venue, error) {
	if path == "" {
		return DefaultVenue(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venue config: %w", err)
	}
	return ParseVenue(raw)
}

func ParseVenue(raw []byte) (*Venue, error) {
	var f venueFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse venue config: %w", err)
	}

	v := DefaultVenue()
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"kidFullDayPrice", f.KidFullDayPrice, &v.KidFullDayPrice},
		{"extraParentFullDayPrice", f.ExtraParentFullDayPrice, &v.ExtraParentFullDayPrice},
		{"sockPrice", f.SockPrice, &v.SockPrice},
		{"tableOrderPrice", f.TableOrderPrice, &v.TableOrderPrice},
		{"pointsPerYuan", f.PointsPerYuan, &v.PointsPerYuan},
	}
	for _, fd := range fields {
		if fd.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(fd.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", fd.name, fd.raw, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("%s must be >= 0", fd.name)
		}
		*fd.dst = d
	}
	if f.FreeParentsPerKid != nil {
		if *f.FreeParentsPerKid < 0 {
			return nil, fmt.Errorf("freeParentsPerKid must be >= 0")
		}
		v.FreeParentsPerKid = *f.FreeParentsPerKid
	}
	if f.HolidayKidFullDayPrice != "" {
		d, err := decimal.NewFromString(f.HolidayKidFullDayPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid holidayKidFullDayPrice %q: %w", f.HolidayKidFullDayPrice, err)
		}
		v.HolidayKidFullDayPrice = &d
	}

	for _, day := range f.Holidays {
		if _, err := time.Parse(dates.Layout, day); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", day, err)
		}
		v.Holidays[day] = true
	}
	for _, day := range f.Workdays {
		if _, err := time.Parse(dates.Layout, day); err != nil {
			return nil, fmt.Errorf("invalid workday %q: %w", day, err)
		}
		v.Workdays[day] = true
	}
	return v, nil
}

// OffDay reports whether date (YYYY-MM-DD) is a weekend or holiday,
// honouring work-day swaps.
func (v *Venue) OffDay(date string) bool {
	if v.Holidays[date] {
		return true
	}
	if v.Workdays[date] {
		return false
	}
	t, err := time.Parse(dates.Layout, date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// LimitWeekday maps date to the weekday whose store limits apply. Holidays
// use Sunday limits, swapped work days use Monday limits.
func (v *Venue) LimitWeekday(date string) time.Weekday {
	if v.Holidays[date] {
		return time.Sunday
	}
	if v.Workdays[date] {
		return time.Monday
	}
	t, err := time.Parse(dates.Layout, date)
	if err != nil {
		return time.Monday
	}
	return t.Weekday()
}

// VenueStore hands out the current snapshot and lets it be swapped whole.
type VenueStore struct {
	v atomic.Pointer[Venue]
}

func NewVenueStore(v *Venue) *VenueStore {
	s := &VenueStore{}
	s.v.Store(v)
	return s
}

func (s *VenueStore) Current() *Venue {
	return s.v.Load()
}

func (s *VenueStore) Replace(v *Venue) {
	s.v.Store(v)
}
