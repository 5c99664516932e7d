// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/metrics"
	"github.com/smazurov/peqlink/internal/orchestrator"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/version"
)

// Health check models
type HealthData struct {
	Status        string `json:"status" example:"ok" doc:"Service status"`
	Message       string `json:"message" example:"API is healthy" doc:"Status message"`
	Connected     bool   `json:"connected" doc:"Whether a device session is open"`
	DroppedEvents uint64 `json:"dropped_events" doc:"Events missed by slow stream clients"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionResponse struct {
	Body version.Info
}

// Device models
type DevicesRequest struct {
	Transport peq.TransportKind `query:"transport" default:"hid" enum:"hid,serial,network" doc:"Transport to enumerate"`
}

type DevicesData struct {
	Devices []connector.Candidate `json:"devices" doc:"Attached devices with their resolved capability"`
	Count   int                   `json:"count" example:"1" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DevicesData
}

// Session models
type ConnectRequest struct {
	Body orchestrator.ConnectRequest
}

type SessionData struct {
	ID          string               `json:"id" doc:"Session identifier"`
	Device      connector.Device     `json:"device"`
	Vendor      string               `json:"vendor" example:"FiiO"`
	Capability  peq.Capability       `json:"capability"`
	Known       bool                 `json:"known" doc:"Product matched a registry entry"`
	Handler     string               `json:"handler" example:"fiio" doc:"Protocol driver"`
	OpenedAt    string               `json:"opened_at" example:"2026-01-27T10:30:00Z"`
	CurrentSlot *int                 `json:"current_slot,omitempty" doc:"Active slot, -1 when PEQ is off"`
	Firmware    string               `json:"firmware,omitempty" example:"1.0.4" doc:"Firmware version where the device reports one"`
	Warnings    []peq.Warning        `json:"warnings,omitempty"`
	SlotError   string               `json:"slot_error,omitempty" doc:"Why the active slot could not be read"`
	Stats       *metrics.DeviceStats `json:"stats,omitempty" doc:"Operation counters for this session"`
}

type SessionResponse struct {
	Body SessionData
}

type DisconnectData struct {
	Disconnected bool   `json:"disconnected" doc:"A session was open and has been closed"`
	Message      string `json:"message" example:"Disconnected"`
}

type DisconnectResponse struct {
	Body DisconnectData
}

type SlotsResponse struct {
	Body orchestrator.SlotInfo
}

type SelectSlotData struct {
	SlotID int `json:"slot_id" example:"7" doc:"Slot to activate, -1 turns PEQ off"`
}

type SelectSlotRequest struct {
	Body SelectSlotData
}

type SelectSlotResult struct {
	SlotID  int  `json:"slot_id" example:"7"`
	Enabled bool `json:"enabled" doc:"False when PEQ was turned off"`
}

type SelectSlotResponse struct {
	Body SelectSlotResult
}

type PullData struct {
	SlotID int `json:"slot_id" example:"7" doc:"Slot to read"`
}

type PullRequest struct {
	Body PullData
}

type PullResponse struct {
	Body orchestrator.PullOutcome
}

type PushData struct {
	SlotID int      `json:"slot_id" example:"7" doc:"Slot to write"`
	Preamp *float64 `json:"preamp,omitempty" example:"-3.5" doc:"Pre-amp in dB, derived from the filters when omitted"`
}

type PushRequest struct {
	Body PushData
}

type PushResponse struct {
	Body orchestrator.PushOutcome
}

// Filter list models
type FiltersResponse struct {
	Body peq.FilterSet
}

type FiltersRequest struct {
	Body peq.FilterSet
}

// Registry models
type RegistryData struct {
	Vendors []registry.Vendor     `json:"vendors" doc:"Merged vendor tables"`
	Entries []registry.Resolution `json:"entries" doc:"Every known model resolved to its capability"`
}

type RegistryResponse struct {
	Body RegistryData
}

// Log models
type LogsRequest struct {
	Module string `query:"module" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
	Limit  int    `query:"limit" minimum:"0" default:"0" doc:"Most recent entries to return, 0 for all"`
}

type LogsData struct {
	Entries []events.LogEntryEvent `json:"entries"`
	Count   int                    `json:"count"`
	Text    string                 `json:"text" doc:"Entries as plain lines, for attaching to a device report"`
}

type LogsResponse struct {
	Body LogsData
}
