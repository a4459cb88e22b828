package healthcare

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselz/docent/internal/assistant"
)

func newAgent(t *testing.T) (assistant.Descriptor, assistant.Context) {
	t.Helper()
	d, err := New()
	require.NoError(t, err)
	return d, assistant.Context{SessionID: uuid.New(), UserID: "patient-1"}
}

func say(t *testing.T, d assistant.Descriptor, actx assistant.Context, text string) string {
	t.Helper()
	reply, err := d.Handle(context.Background(), text, actx)
	require.NoError(t, err)
	return reply
}

func TestDescriptor(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	assert.Equal(t, "Healthcare Assistant", d.Name)
	assert.Equal(t, "health", d.Command)
	assert.NotNil(t, d.Handle)
	assert.Nil(t, d.HandleFile)
	assert.Nil(t, d.HandleSearch)
}

func TestDefaultReply(t *testing.T) {
	d, actx := newAgent(t)
	reply := say(t, d, actx, "hello there")
	assert.Contains(t, reply, "scheduling appointments or retrieving lab results")
}

func TestInsuranceGuideline(t *testing.T) {
	d, actx := newAgent(t)
	reply := say(t, d, actx, "Do you take my insurance?")
	assert.Contains(t, reply, "Blue Cross Blue Shield")
	assert.Contains(t, reply, officePhone)
}

func TestHumanAgentGuideline(t *testing.T) {
	d, actx := newAgent(t)
	reply := say(t, d, actx, "I want to talk to a human")
	assert.Contains(t, reply, officePhone)
}

func TestEmergencyGuideline(t *testing.T) {
	d, actx := newAgent(t)
	reply := say(t, d, actx, "this is urgent")
	assert.Contains(t, reply, "911")
}

func TestSchedulingJourney_HappyPath(t *testing.T) {
	d, actx := newAgent(t)

	// First mention of scheduling asks for the reason.
	reply := say(t, d, actx, "I need to schedule an appointment")
	assert.Contains(t, reply, "What is the reason for your visit?")

	// Next scheduling message shows upcoming slots.
	reply = say(t, d, actx, "I need a checkup appointment")
	assert.Contains(t, reply, "Monday 10 AM")
	assert.Contains(t, reply, "Which time works best")

	// Picking a slot asks for confirmation.
	reply = say(t, d, actx, "monday appointment works for me")
	assert.Contains(t, reply, "Monday 10 AM")
	assert.Contains(t, reply, "confirm")

	// Confirming completes the journey.
	reply = say(t, d, actx, "yes, book the appointment")
	assert.Contains(t, reply, "Appointment scheduled for Monday 10 AM")

	// Journey state was reset: scheduling again starts over.
	reply = say(t, d, actx, "schedule another appointment")
	assert.Contains(t, reply, "What is the reason for your visit?")
}

func TestSchedulingJourney_LaterSlotsAndPhoneFallback(t *testing.T) {
	d, actx := newAgent(t)

	say(t, d, actx, "schedule an appointment") // reason
	say(t, d, actx, "appointment for back pain") // slots shown

	reply := say(t, d, actx, "none of those work for my appointment schedule")
	assert.Contains(t, reply, "November 3, 11:30 AM")

	// Still nothing suitable: fall back to the office phone.
	reply = say(t, d, actx, "schedule something else entirely please")
	assert.Contains(t, reply, officePhone)
}

func TestSchedulingJourney_SessionsAreIndependent(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	first := assistant.Context{SessionID: uuid.New(), UserID: "a"}
	second := assistant.Context{SessionID: uuid.New(), UserID: "b"}

	say(t, d, first, "schedule an appointment")
	reply := say(t, d, second, "schedule an appointment")
	// A fresh session starts at the beginning of the journey.
	assert.Contains(t, reply, "What is the reason for your visit?")
}

func TestLabResults(t *testing.T) {
	d, actx := newAgent(t)
	reply := say(t, d, actx, "did my lab results come in?")
	assert.Contains(t, reply, "Complete Blood Count")
	assert.Contains(t, reply, "nothing to worry about")
}

func TestCancelledContext(t *testing.T) {
	d, actx := newAgent(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Handle(ctx, "hello", actx)
	assert.ErrorIs(t, err, context.Canceled)
}
