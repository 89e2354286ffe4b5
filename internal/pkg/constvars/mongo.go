package constvars

const (
	MongoCollectionSchedules    = "schedules"
	MongoCollectionAppointments = "appointments"
	MongoCollectionPayments     = "payments"
	MongoCollectionDoctors      = "doctors"
	MongoCollectionPatients     = "patients"
)
