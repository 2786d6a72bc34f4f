package workflow

import "time"

// registerDefaults installs the standard booking flow every tenant gets:
// check availability, create the booking, send the WhatsApp confirmation,
// with alternative-suggestion and error-handling branches on failure.
func (m *Manager) registerDefaults() {
	now := time.Now()
	booking := Definition{
		ID:          "booking_flow",
		Name:        "Standard Booking Flow",
		Description: "Standard workflow for processing booking requests",
		Trigger: Trigger{
			Type:    TriggerIntent,
			Pattern: "booking_request",
		},
		Steps: []Step{
			{
				ID:   "check_availability",
				Name: "Check Availability",
				Type: StepFunctionCall,
				Config: StepConfig{
					FunctionName: "check_availability",
					Arguments: map[string]any{
						"service_name": "{{service_name}}",
						"date":         "{{preferred_date}}",
						"time":         "{{preferred_time}}",
					},
				},
				OnSuccess: "create_booking",
				OnFailure: "suggest_alternatives",
			},
			{
				ID:   "create_booking",
				Name: "Create Booking",
				Type: StepFunctionCall,
				Config: StepConfig{
					FunctionName: "book_service",
					Arguments: map[string]any{
						"service_id":  "{{service_id}}",
						"date":        "{{confirmed_date}}",
						"time":        "{{confirmed_time}}",
						"client_name": "{{client_name}}",
						"phone":       "{{phone}}",
					},
				},
				Dependencies: []string{"check_availability"},
				OnSuccess:    "send_confirmation",
				OnFailure:    "handle_booking_error",
			},
			{
				ID:   "send_confirmation",
				Name: "Send Confirmation",
				Type: StepNotification,
				Config: StepConfig{
					Notification: &NotificationConfig{
						Channel:    "whatsapp",
						Template:   "booking_confirmation",
						Recipients: []string{"{{phone}}"},
					},
				},
				Dependencies: []string{"create_booking"},
			},
			{
				ID:   "suggest_alternatives",
				Name: "Suggest Alternatives",
				Type: StepFunctionCall,
				Config: StepConfig{
					FunctionName: "suggest_available_slots",
					Arguments: map[string]any{
						"service_name": "{{service_name}}",
						"date":         "{{preferred_date}}",
					},
				},
			},
			{
				ID:   "handle_booking_error",
				Name: "Handle Booking Error",
				Type: StepNotification,
				Config: StepConfig{
					Notification: &NotificationConfig{
						Channel:    "whatsapp",
						Template:   "booking_error",
						Recipients: []string{"{{phone}}"},
					},
				},
			},
		},
		Metadata: Metadata{
			Version:   "1.0.0",
			Author:    "system",
			Tags:      []string{"booking", "default"},
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
		},
	}
	m.workflows[booking.ID] = booking
}
