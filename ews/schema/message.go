package schema

import "github.com/tarowe/go-ews/ews/types"

// DefaultItemSchema returns the schema of a standard mail folder: fields
// common to all items plus the message and meeting-request subtype shapes.
// Real deployments extend or replace this registry; tests and the offline
// `ewsq explain` command rely on it.
func DefaultItemSchema() *Registry {
	return NewRegistry(map[string]*types.FieldDescriptor{
		"subject": {WireID: "item:Subject", Type: types.FieldString},
		"body":    {WireID: "item:Body", Type: types.FieldString},
		"size":    {WireID: "item:Size", Type: types.FieldInt},
		"importance": {
			WireID: "item:Importance",
			Type:   types.FieldInt,
		},
		"received": {WireID: "item:DateTimeReceived", Type: types.FieldDateTime},
		"categories": {
			WireID:      "item:Categories",
			Type:        types.FieldString,
			Multivalued: true,
		},

		// message shape
		"is_read": {WireID: "message:IsRead", Type: types.FieldBool, Shape: "message"},
		"sender": {
			WireID: "message:Sender",
			Type:   types.FieldStruct,
			Shape:  "message",
			Fields: map[string]*types.FieldDescriptor{
				"name":          {WireID: "message:Sender/Name", Type: types.FieldString},
				"email_address": {WireID: "message:Sender/EmailAddress", Type: types.FieldString},
			},
		},

		// meeting_request shape
		"start": {WireID: "calendar:Start", Type: types.FieldDateTime, Shape: "meeting_request"},
		"end":   {WireID: "calendar:End", Type: types.FieldDateTime, Shape: "meeting_request"},
		"organizer": {
			WireID: "calendar:Organizer",
			Type:   types.FieldStruct,
			Shape:  "meeting_request",
			Fields: map[string]*types.FieldDescriptor{
				"name":          {WireID: "calendar:Organizer/Name", Type: types.FieldString},
				"email_address": {WireID: "calendar:Organizer/EmailAddress", Type: types.FieldString},
			},
		},
	})
}
