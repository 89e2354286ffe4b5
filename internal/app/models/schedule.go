package models

import (
	"fmt"
	"time"

	"carelink-service/internal/pkg/constvars"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slot is a bookable time window embedded in a doctor's schedule
// document. The occupied flag flips only through the conflict resolver's
// conditional update, never by direct mutation.
type Slot struct {
	ID        string     `bson:"id" json:"id"`
	Date      string     `bson:"date" json:"date"`
	StartTime string     `bson:"startTime" json:"start_time"`
	EndTime   string     `bson:"endTime" json:"end_time"`
	IsBooked  bool       `bson:"isBooked" json:"is_booked"`
	BookedBy  string     `bson:"bookedBy,omitempty" json:"booked_by,omitempty"`
	BookedAt  *time.Time `bson:"bookedAt,omitempty" json:"booked_at,omitempty"`
}

type Schedule struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DoctorID string             `bson:"doctorId" json:"doctor_id"`
	Slots    []Slot             `bson:"slots" json:"slots"`
}

// ReservedWindow is the absolute window handed back by a successful
// reservation, recomputed from the slot's date and time-of-day fields.
type ReservedWindow struct {
	SlotID string
	Date   string
	Start  time.Time
	End    time.Time
}

// Window recomputes the slot's absolute start/end instants. Timestamps
// are naive local time, matching how slots are produced.
func (s *Slot) Window() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(
		constvars.DateOnlyLayout+" "+constvars.TimeOfDayLayout,
		fmt.Sprintf("%s %s", s.Date, s.StartTime),
		time.Local,
	)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(
		constvars.DateOnlyLayout+" "+constvars.TimeOfDayLayout,
		fmt.Sprintf("%s %s", s.Date, s.EndTime),
		time.Local,
	)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
