package requests

type CreateAppointment struct {
	AppointmentType string `json:"appointmentType" validate:"required,oneof=in_person virtual"`
	Reason          string `json:"reason" validate:"required,max=500"`
	SlotID          string `json:"slotId" validate:"required,uuid"`
}

type CancelAppointment struct {
	CancellationReason string `json:"cancellationReason" validate:"required,max=500"`
}

type RescheduleAppointment struct {
	SlotID string `json:"slotId" validate:"required,uuid"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type CompleteAppointment struct {
	NoShow bool `json:"noShow"`
}

type CreateSlots struct {
	Slots []NewSlot `json:"slots" validate:"required,min=1,dive"`
}

type NewSlot struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}
