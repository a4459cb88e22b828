package healthcare

// Stand-in data providers for the scheduling and lab-result journeys.
// A real deployment would back these with the clinic's scheduling system
// and results database.

func upcomingSlots() []string {
	return []string{"Monday 10 AM", "Tuesday 2 PM", "Wednesday 1 PM"}
}

func laterSlots() []string {
	return []string{"November 3, 11:30 AM", "November 12, 3 PM"}
}

func scheduleAppointment(slot string) string {
	return "Appointment scheduled for " + slot
}

func labResults(userID string) (report, prognosis string) {
	_ = userID // real implementation would look up the patient's record
	return "Complete Blood Count (CBC) - All values within normal range", "Normal"
}
