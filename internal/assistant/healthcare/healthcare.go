// Package healthcare implements the built-in patient-support assistant:
// appointment scheduling and lab result retrieval, with guardrails that
// route insurance questions, human-agent requests and emergencies to the
// office phone line.
package healthcare

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/assistant"
)

const officePhone = "+1-234-567-8900"

// New returns the healthcare assistant descriptor for registration.
func New() (assistant.Descriptor, error) {
	a := &agent{sessions: make(map[uuid.UUID]*schedulingState)}
	return assistant.Descriptor{
		Name:        "Healthcare Assistant",
		Command:     "health",
		Description: "Helps patients schedule appointments and retrieve lab results",
		Handle:      a.handle,
	}, nil
}

// schedulingState tracks one session's progress through the appointment
// scheduling journey.
type schedulingState struct {
	reason          string
	slotsShown      bool
	upcomingSlots   []string
	selectedSlot    string
	laterSlotsShown bool
}

type agent struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*schedulingState
}

func (a *agent) handle(ctx context.Context, text string, actx assistant.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lower := strings.ToLower(strings.TrimSpace(text))

	if containsAny(lower, "schedule", "appointment", "book", "appointment time") {
		return a.handleScheduling(lower, actx), nil
	}

	if containsAny(lower, "lab results", "test results", "lab report", "results") {
		return a.handleLabResults(actx), nil
	}

	if strings.Contains(lower, "insurance") {
		return "We accept most major insurance providers including Blue Cross Blue Shield, " +
			"Aetna, and UnitedHealthcare. For specific coverage details, please call our " +
			"office at " + officePhone + " during office hours (Monday to Friday, 9 AM to 5 PM).", nil
	}

	if containsAny(lower, "human", "agent", "speak to", "talk to") {
		return "I understand you'd like to speak with someone. Please call our office " +
			"at " + officePhone + " during office hours (Monday to Friday, 9 AM to 5 PM), " +
			"and our staff will be happy to assist you.", nil
	}

	if containsAny(lower, "urgent", "emergency") {
		return "If this is a medical emergency, please call 911 immediately. " +
			"For urgent matters, please call our office at " + officePhone + " right away.", nil
	}

	return "I'm here to help you with scheduling appointments or retrieving lab results. " +
		"How can I assist you today? You can say things like 'I need to schedule an appointment' " +
		"or 'Did my lab results come in?'", nil
}

func (a *agent) handleScheduling(lower string, actx assistant.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, ok := a.sessions[actx.SessionID]
	if !ok {
		state = &schedulingState{}
		a.sessions[actx.SessionID] = state
	}

	if state.reason == "" {
		state.reason = "general"
		return "I'd be happy to help you schedule an appointment. " +
			"What is the reason for your visit?"
	}

	if !state.slotsShown {
		state.slotsShown = true
		state.upcomingSlots = upcomingSlots()
		return fmt.Sprintf("Here are some available appointment times:\n%s\n\n"+
			"Which time works best for you?", bulletList(state.upcomingSlots))
	}

	if picked := matchSlot(lower, state.upcomingSlots); picked != "" {
		state.selectedSlot = picked
		return fmt.Sprintf("I have %s available. Would you like me to confirm this appointment?", picked)
	}

	if state.selectedSlot != "" && containsAny(lower, "yes", "confirm", "sounds good", "ok") {
		selected := state.selectedSlot
		delete(a.sessions, actx.SessionID) // journey complete, reset
		return scheduleAppointment(selected)
	}

	if containsAny(lower, "none", "don't work", "not available") {
		state.laterSlotsShown = true
		return fmt.Sprintf("I understand. Here are some later available times:\n%s\n\n"+
			"Do any of these work for you?", bulletList(laterSlots()))
	}

	if state.laterSlotsShown {
		return "I understand those times don't work either. Please call our office " +
			"at " + officePhone + " to speak with our scheduling team, and they'll " +
			"help you find a time that works."
	}

	return "I'm here to help you schedule an appointment. Which time works best for you?"
}

func (a *agent) handleLabResults(actx assistant.Context) string {
	report, prognosis := labResults(actx.UserID)
	if report == "" {
		return "I couldn't find your lab results. Please call our office at " +
			officePhone + " for assistance."
	}

	switch strings.ToLower(prognosis) {
	case "normal", "good", "healthy":
		return fmt.Sprintf("Your lab results are in. %s "+
			"Everything looks normal - nothing to worry about!", report)
	default:
		return fmt.Sprintf("Your lab results are in. %s "+
			"However, I'm not a doctor and cannot provide medical interpretations. "+
			"Please call our office at %s to discuss these results "+
			"with your healthcare provider.", report, officePhone)
	}
}

// matchSlot returns the first offered slot that shares a word with the
// user's message.
func matchSlot(lower string, slots []string) string {
	for _, slot := range slots {
		for _, word := range strings.Fields(strings.ToLower(slot)) {
			if strings.Contains(lower, word) {
				return slot
			}
		}
	}
	return ""
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
