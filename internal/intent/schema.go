package intent

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names the model may call. Exactly one call per extraction; anything
// else is a schema violation.
const (
	toolCreateEvent = "create_event"
	toolUpdateEvent = "update_event"
	toolDeleteEvent = "delete_event"
	toolListEvents  = "list_events"
)

// confidenceProperty is shared by every tool: the model's own estimate of how
// certain it is that it understood the request.
var confidenceProperty = jsonschema.Definition{
	Type:        jsonschema.Number,
	Description: "Confidence in [0,1] that this action matches what the user asked for. Use values below 0.5 when unsure.",
}

var timeZoneProperty = jsonschema.Definition{
	Type:        jsonschema.String,
	Description: "IANA timezone the user referred to (e.g. 'America/New_York'), only if stated or clearly implied. Leave empty otherwise.",
}

// calendarTools defines the function-calling schema the extractor offers the
// model. Time fields accept either RFC3339 timestamps or relative expressions
// ('tomorrow at 2pm', 'next friday 15:00'); relative values are resolved
// downstream against the utterance timestamp, never by the model guessing.
func calendarTools() []openai.Tool {
	createParams := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title": {
				Type:        jsonschema.String,
				Description: "The event title or summary (e.g. 'Team meeting', 'Call with Maria')",
			},
			"start": {
				Type:        jsonschema.String,
				Description: "Start time: RFC3339 or a relative expression like 'tomorrow at 2pm'",
			},
			"end": {
				Type:        jsonschema.String,
				Description: "End time, same formats as start. Omit to use duration_minutes.",
			},
			"duration_minutes": {
				Type:        jsonschema.Integer,
				Description: "Duration in minutes when no end time was stated. Default 60.",
			},
			"description": {
				Type:        jsonschema.String,
				Description: "Optional description or notes for the event",
			},
			"attendees": {
				Type:        jsonschema.Array,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
				Description: "Attendee email addresses, only if the user named reachable people",
			},
			"timezone":   timeZoneProperty,
			"confidence": confidenceProperty,
		},
		Required: []string{"title", "start", "confidence"},
	}

	updateParams := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"target": {
				Type:        jsonschema.String,
				Description: "Free-text description of the existing event ('my 3pm meeting', 'the standup')",
			},
			"target_time": {
				Type:        jsonschema.String,
				Description: "When the event currently is, if the user stated it ('3pm', 'tomorrow morning')",
			},
			"new_title": {
				Type:        jsonschema.String,
				Description: "New event title, if the user wants it renamed",
			},
			"new_start": {
				Type:        jsonschema.String,
				Description: "New start time: RFC3339 or relative expression",
			},
			"new_end": {
				Type:        jsonschema.String,
				Description: "New end time, same formats",
			},
			"duration_minutes": {
				Type:        jsonschema.Integer,
				Description: "New duration in minutes; omit to keep the event's current duration",
			},
			"attendees": {
				Type:        jsonschema.Array,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
				Description: "Replacement attendee email list, only if the user changed attendees",
			},
			"timezone":   timeZoneProperty,
			"confidence": confidenceProperty,
		},
		Required: []string{"target", "confidence"},
	}

	deleteParams := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"target": {
				Type:        jsonschema.String,
				Description: "Free-text description of the event to cancel",
			},
			"target_time": {
				Type:        jsonschema.String,
				Description: "When the event is, if the user stated it",
			},
			"timezone":   timeZoneProperty,
			"confidence": confidenceProperty,
		},
		Required: []string{"target", "confidence"},
	}

	listParams := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"date": {
				Type:        jsonschema.String,
				Description: "Start of the window: 'today', a relative expression, or RFC3339",
			},
			"days_ahead": {
				Type:        jsonschema.Integer,
				Description: "Number of days to look ahead from the start date. Default 1.",
			},
			"confidence": confidenceProperty,
		},
		Required: []string{"date", "confidence"},
	}

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolCreateEvent,
				Description: "Create a new calendar event. Use when the user wants to schedule, add, or create something.",
				Parameters:  createParams,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolUpdateEvent,
				Description: "Change an existing calendar event (move it, rename it, change attendees).",
				Parameters:  updateParams,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolDeleteEvent,
				Description: "Cancel/delete an existing calendar event.",
				Parameters:  deleteParams,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolListEvents,
				Description: "List calendar events. Use when the user asks what's on their calendar.",
				Parameters:  listParams,
			},
		},
	}
}
